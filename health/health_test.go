package health

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecker(t *testing.T) {
	t.Run("no checks is ready", func(t *testing.T) {
		ready, components := NewChecker().Ready()
		require.True(t, ready)
		require.Empty(t, components)
	})

	t.Run("all ready", func(t *testing.T) {
		checker := NewChecker(
			CheckFunc{CheckName: "a", Fn: func() bool { return true }},
			CheckFunc{CheckName: "b", Fn: func() bool { return true }},
		)

		ready, components := checker.Ready()
		require.True(t, ready)
		require.Equal(t, map[string]bool{"a": true, "b": true}, components)
	})

	t.Run("one failing check fails the aggregate", func(t *testing.T) {
		checker := NewChecker(
			CheckFunc{CheckName: "a", Fn: func() bool { return true }},
		)
		checker.Register(CheckFunc{CheckName: "b", Fn: func() bool { return false }})

		ready, components := checker.Ready()
		require.False(t, ready)
		require.False(t, components["b"])
	})
}
