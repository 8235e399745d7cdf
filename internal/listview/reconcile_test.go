package listview

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID     string
	Status string
}

func byID(r row) string { return r.ID }

func pending(r row) bool { return r.Status == "EnRevisión1" }

func TestReconcile(t *testing.T) {
	list := []row{{"A", "EnRevisión1"}, {"B", "EnRevisión1"}}

	out, change := Reconcile(list, row{"B", "EnRevisión1"}, byID, pending)
	require.Equal(t, Replaced, change)
	require.Equal(t, list, out)

	out, change = Reconcile(list, row{"B", "Aprobada"}, byID, pending)
	require.Equal(t, Removed, change)
	require.Equal(t, []row{{"A", "EnRevisión1"}}, out)

	out, change = Reconcile(list, row{"C", "EnRevisión1"}, byID, pending)
	require.Equal(t, Inserted, change)
	require.Equal(t, []row{{"C", "EnRevisión1"}, {"A", "EnRevisión1"}, {"B", "EnRevisión1"}}, out)

	out, change = Reconcile(list, row{"D", "Guardada"}, byID, pending)
	require.Equal(t, Unchanged, change)
	require.Equal(t, list, out)

	require.Equal(t, []row{{"A", "EnRevisión1"}, {"B", "EnRevisión1"}}, list)
}

func TestReconcileReplacesInPlace(t *testing.T) {
	list := []row{{"A", "x"}, {"B", "x"}, {"C", "x"}}
	out, change := Reconcile(list, row{"B", "y"}, byID, func(row) bool { return true })
	require.Equal(t, Replaced, change)
	require.Equal(t, "y", out[1].Status)
	require.Equal(t, "x", list[1].Status)
}

func TestReconcileEmptyList(t *testing.T) {
	out, change := Reconcile(nil, row{"A", "EnRevisión1"}, byID, pending)
	require.Equal(t, Inserted, change)
	require.Len(t, out, 1)
	require.Equal(t, "inserted", change.String())
}
