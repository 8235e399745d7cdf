package rbac

import "slices"

// Evaluator answers permission questions against a Store.
type Evaluator struct {
	store   *Store
	catalog Catalog
}

// NewEvaluator builds an Evaluator. A nil catalog falls back to DefaultCatalog.
func NewEvaluator(store *Store, catalog Catalog) *Evaluator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Evaluator{store: store, catalog: catalog}
}

// Store exposes the backing store.
func (e *Evaluator) Store() *Store {
	if e == nil {
		return nil
	}
	return e.store
}

// HasPermission reports whether the exact (formID, action) pair is granted.
func (e *Evaluator) HasPermission(formID string, action Action) bool {
	if e == nil {
		return false
	}
	for _, entry := range e.store.All() {
		if entry.FormID == formID && entry.Action == action {
			return true
		}
	}
	return false
}

// Actions returns every action granted on formID in stored order.
func (e *Evaluator) Actions(formID string) []Action {
	if e == nil {
		return []Action{}
	}
	actions := []Action{}
	for _, entry := range e.store.All() {
		if entry.FormID == formID {
			actions = append(actions, entry.Action)
		}
	}
	return actions
}

// FormMenu lists the forms the user can navigate to, in first-occurrence order.
// Forms without SEARCH or without catalog metadata are left out.
func (e *Evaluator) FormMenu() []MenuEntry {
	menu := []MenuEntry{}
	if e == nil {
		return menu
	}
	entries := e.store.All()
	searchable := make(map[string]bool)
	for _, entry := range entries {
		if entry.Action == ActionSearch {
			searchable[entry.FormID] = true
		}
	}
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if _, ok := seen[entry.FormID]; ok {
			continue
		}
		seen[entry.FormID] = struct{}{}
		if !searchable[entry.FormID] {
			continue
		}
		meta, ok := e.catalog.Lookup(entry.FormID)
		if !ok {
			continue
		}
		menu = append(menu, meta)
	}
	return menu
}

// MenuGroups groups FormMenu by adjacent category.
func (e *Evaluator) MenuGroups() []MenuGroup {
	return GroupByCategory(e.FormMenu())
}

// GroupByCategory folds consecutive entries that share a category.
func GroupByCategory(menu []MenuEntry) []MenuGroup {
	groups := []MenuGroup{}
	for _, entry := range menu {
		last := len(groups) - 1
		if last >= 0 && groups[last].Category == entry.Category {
			groups[last].Entries = append(groups[last].Entries, entry)
			continue
		}
		groups = append(groups, MenuGroup{Category: entry.Category, Entries: []MenuEntry{entry}})
	}
	return groups
}

// RowActions returns the row-level actions granted on formID.
// CREATE, SEARCH and INFORM are page-level and never included.
func (e *Evaluator) RowActions(formID string) []Action {
	out := []Action{}
	for _, action := range e.Actions(formID) {
		if action.IsPageLevel() {
			continue
		}
		out = append(out, action)
	}
	return out
}

// RowActionsIn narrows RowActions to the given list context. A pending-approval
// view exposes only APPROVE and PRINT. A normal view exposes the form's
// normal-context set when it has one, and everything but APPROVE otherwise.
func (e *Evaluator) RowActionsIn(formID string, mode ContextMode) []Action {
	out := []Action{}
	for _, action := range e.RowActions(formID) {
		if allowedInMode(formID, action, mode) {
			out = append(out, action)
		}
	}
	return out
}

// normalRowActions lists the row actions offered outside pending approval for
// forms whose rows do not expose every granted action.
var normalRowActions = map[string][]Action{
	FormRequisition: {ActionUpdate, ActionManage, ActionSend, ActionPrint},
}

func allowedInMode(formID string, action Action, mode ContextMode) bool {
	if mode == ModePendingApproval {
		return action == ActionApprove || action == ActionPrint
	}
	if allowed, ok := normalRowActions[formID]; ok {
		return slices.Contains(allowed, action)
	}
	return action != ActionApprove
}
