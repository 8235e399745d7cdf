package rbac

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluatorFailsClosedWhenUnloaded(t *testing.T) {
	ev := NewEvaluator(NewStore(), nil)
	require.False(t, ev.HasPermission(FormRequisition, ActionSearch))
	require.Empty(t, ev.FormMenu())
	require.Empty(t, ev.RowActions(FormRequisition))

	var nilEv *Evaluator
	require.False(t, nilEv.HasPermission(FormClient, ActionCreate))
	require.Empty(t, nilEv.FormMenu())
}

func TestEvaluatorAfterClear(t *testing.T) {
	store := NewLoadedStore([]Entry{{FormID: FormClient, Action: ActionSearch}})
	ev := NewEvaluator(store, nil)
	require.True(t, ev.HasPermission(FormClient, ActionSearch))

	store.Clear()
	require.False(t, ev.HasPermission(FormClient, ActionSearch))
	require.False(t, store.Loaded())
}

func TestHasPermissionExactPair(t *testing.T) {
	ev := NewEvaluator(NewLoadedStore([]Entry{
		{FormID: FormRequisition, Action: ActionSend},
		{FormID: FormClient, Action: ActionApprove},
	}), nil)
	require.True(t, ev.HasPermission(FormRequisition, ActionSend))
	require.False(t, ev.HasPermission(FormRequisition, ActionApprove))
	require.False(t, ev.HasPermission(FormClient, ActionSend))
}

func TestFormMenuOrderAndSearchRequirement(t *testing.T) {
	ev := NewEvaluator(NewLoadedStore([]Entry{
		{FormID: FormVendor, Action: ActionCreate},
		{FormID: FormVendor, Action: ActionSearch},
		{FormID: FormRequisition, Action: ActionUpdate},
		{FormID: FormClient, Action: ActionSearch},
		{FormID: FormVendor, Action: ActionSearch},
		{FormID: "UNKNOWN", Action: ActionSearch},
	}), nil)

	menu := ev.FormMenu()
	require.Len(t, menu, 2)
	require.Equal(t, FormVendor, menu[0].FormID)
	require.Equal(t, FormClient, menu[1].FormID)
	require.Equal(t, "Proveedores", menu[0].Name)
}

func TestMenuGroupsByAdjacency(t *testing.T) {
	menu := []MenuEntry{
		{FormID: "A", Category: "Registros"},
		{FormID: "B", Category: "Registros"},
		{FormID: "C", Category: "Compras"},
		{FormID: "D", Category: "Registros"},
	}
	groups := GroupByCategory(menu)
	require.Len(t, groups, 3)
	require.Equal(t, "Registros", groups[0].Category)
	require.Len(t, groups[0].Entries, 2)
	require.Equal(t, "Compras", groups[1].Category)
	require.Equal(t, "Registros", groups[2].Category)
	require.Equal(t, "D", groups[2].Entries[0].FormID)
}

func TestRowActionsExcludePageLevel(t *testing.T) {
	ev := NewEvaluator(NewLoadedStore([]Entry{
		{FormID: FormRequisition, Action: ActionCreate},
		{FormID: FormRequisition, Action: ActionSearch},
		{FormID: FormRequisition, Action: ActionInform},
		{FormID: FormRequisition, Action: ActionUpdate},
		{FormID: FormRequisition, Action: ActionSend},
		{FormID: FormRequisition, Action: ActionApprove},
		{FormID: FormRequisition, Action: ActionPrint},
	}), nil)

	require.Equal(t, []Action{ActionUpdate, ActionSend, ActionApprove, ActionPrint}, ev.RowActions(FormRequisition))
	for _, a := range ev.RowActions(FormRequisition) {
		require.False(t, a.IsPageLevel())
	}
}

func TestRowActionsInContextMode(t *testing.T) {
	ev := NewEvaluator(NewLoadedStore([]Entry{
		{FormID: FormRequisition, Action: ActionSearch},
		{FormID: FormRequisition, Action: ActionUpdate},
		{FormID: FormRequisition, Action: ActionApprove},
		{FormID: FormRequisition, Action: ActionDelete},
		{FormID: FormRequisition, Action: ActionPrint},
		{FormID: FormVendor, Action: ActionUpdate},
		{FormID: FormVendor, Action: ActionDelete},
	}), nil)

	require.Equal(t, []Action{ActionApprove, ActionPrint}, ev.RowActionsIn(FormRequisition, ModePendingApproval))
	require.Equal(t, []Action{ActionUpdate, ActionPrint}, ev.RowActionsIn(FormRequisition, ModeNormal))
	require.Equal(t, []Action{ActionUpdate, ActionDelete}, ev.RowActionsIn(FormVendor, ModeNormal))
}

func TestStoreDedupesKeepingFirstPosition(t *testing.T) {
	store := NewLoadedStore([]Entry{
		{FormID: FormClient, Action: ActionSearch},
		{FormID: FormVendor, Action: ActionSearch},
		{FormID: FormClient, Action: ActionSearch},
		{FormID: "", Action: ActionSearch},
	})
	require.Equal(t, []Entry{
		{FormID: FormClient, Action: ActionSearch},
		{FormID: FormVendor, Action: ActionSearch},
	}, store.All())
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore()
	ev := NewEvaluator(store, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Load([]Entry{{FormID: FormClient, Action: ActionSearch}})
		}()
		go func() {
			defer wg.Done()
			_ = ev.HasPermission(FormClient, ActionSearch)
		}()
	}
	wg.Wait()
	require.True(t, ev.HasPermission(FormClient, ActionSearch))
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" approve ")
	require.NoError(t, err)
	require.Equal(t, ActionApprove, a)

	_, err = ParseAction("FLY")
	require.ErrorIs(t, err, ErrUnknownAction)
}
