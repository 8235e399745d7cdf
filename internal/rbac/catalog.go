package rbac

// Catalog resolves static metadata for forms.
type Catalog interface {
	Lookup(formID string) (MenuEntry, bool)
}

// StaticCatalog is an in-memory Catalog.
type StaticCatalog map[string]MenuEntry

// Lookup implements Catalog.
func (c StaticCatalog) Lookup(formID string) (MenuEntry, bool) {
	entry, ok := c[formID]
	if !ok {
		return MenuEntry{}, false
	}
	entry.FormID = formID
	return entry, true
}

// DefaultCatalog lists the forms shipped with the application.
func DefaultCatalog() StaticCatalog {
	return StaticCatalog{
		FormClient: {
			Category:    "Registros",
			Path:        "/registros/clientes",
			Name:        "Clientes",
			Icon:        "users",
			Description: "Registro de clientes",
		},
		FormVendor: {
			Category:    "Registros",
			Path:        "/registros/proveedores",
			Name:        "Proveedores",
			Icon:        "truck",
			Description: "Registro de proveedores",
		},
		FormPersonnel: {
			Category:    "Registros",
			Path:        "/registros/personal",
			Name:        "Personal",
			Icon:        "id-card",
			Description: "Registro del personal",
		},
		FormIngredient: {
			Category:    "Registros",
			Path:        "/registros/insumos",
			Name:        "Insumos",
			Icon:        "carrot",
			Description: "Registro de insumos e ítems",
		},
		FormInventory: {
			Category:    "Inventario",
			Path:        "/inventario",
			Name:        "Inventario",
			Icon:        "boxes",
			Description: "Movimientos y saldos de insumos",
		},
		FormRequisition: {
			Category:    "Compras",
			Path:        "/compras/requisiciones",
			Name:        "Requisiciones",
			Icon:        "clipboard-check",
			Description: "Requisiciones de compra y aprobaciones",
		},
	}
}
