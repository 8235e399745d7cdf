package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dagelec/dagelec-erp/internal/platform/httpx"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"TOMATE":            "tomate",
		"Ñandú  Pérez":      "nanduperez",
		"S.A.S - Bogotá":    "sasbogota",
		"  Café\tOrgánico ": "cafeorganico",
		"":                  "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeName(in), in)
	}
}

func TestFindDuplicatesByName(t *testing.T) {
	existing := []Named{{ID: 1, Name: "Tomate", Code: "001"}, {ID: 2, Name: "Cebolla", Code: "003"}}

	got := FindDuplicates(existing, Named{Name: "TOMATE", Code: "002"}, true)
	require.Equal(t, []string{"Tomate"}, got)

	got = FindDuplicates(existing, Named{Name: "Tomáte", Code: "002"}, false)
	require.Equal(t, []string{"Tomate"}, got)
}

func TestFindDuplicatesByCode(t *testing.T) {
	existing := []Named{{ID: 1, Name: "Tomate", Code: "001"}}

	require.Equal(t, []string{"Tomate"}, FindDuplicates(existing, Named{Name: "Papa", Code: "0-01"}, true))
	require.Empty(t, FindDuplicates(existing, Named{Name: "Papa", Code: "001"}, false))
}

func TestFindDuplicatesSkipsSelf(t *testing.T) {
	existing := []Named{{ID: 1, Name: "Tomate", Code: "001"}}
	require.Empty(t, FindDuplicates(existing, Named{ID: 1, Name: "tomate", Code: "001"}, true))
}

func TestCheckDuplicatesError(t *testing.T) {
	err := CheckDuplicates([]Named{{ID: 1, Name: "Tomate"}}, Named{Name: "TOMATE"}, false)
	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	require.Equal(t, []string{"Tomate"}, dup.Names)
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
	require.Contains(t, err.Error(), "Tomate")

	require.NoError(t, CheckDuplicates(nil, Named{Name: "Tomate"}, true))
}
