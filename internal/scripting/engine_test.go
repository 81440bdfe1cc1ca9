package scripting

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

func newEngine(t *testing.T, houseScript string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if houseScript != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "house"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "house", "rent.lua"), []byte(houseScript), 0o644))
	}
	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestHooksAbsent(t *testing.T) {
	e := newEngine(t, "")
	assert.Equal(t, uint32(100), e.RentModifier(5, 100))
	e.OnRentUnpaid(5, 1, "insufficient funds")
}

func TestRentModifier(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   uint32
	}{
		{"discount", "function rent_modifier(id, rent) return rent / 2 end", 50},
		{"per house", "function rent_modifier(id, rent) if id == 5 then return 0 end return rent end", 0},
		{"bad return", "function rent_modifier(id, rent) return 'free' end", 100},
		{"negative", "function rent_modifier(id, rent) return -1 end", 100},
		{"too large", "function rent_modifier(id, rent) return 2^40 end", math.MaxUint32},
		{"not a number", "function rent_modifier(id, rent) return 0/0 end", 100},
		{"runtime error", "function rent_modifier(id, rent) error('boom') end", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.script)
			assert.Equal(t, tt.want, e.RentModifier(5, 100))
		})
	}
}

func TestOnRentUnpaid(t *testing.T) {
	e := newEngine(t, `
calls = {}
function on_rent_unpaid(id, owner, reason)
  calls[#calls + 1] = id .. ":" .. owner .. ":" .. reason
end
`)
	e.OnRentUnpaid(5, 42, "insufficient funds")
	calls := e.vm.GetGlobal("calls")
	assert.Equal(t, "5:42:insufficient funds", e.vm.GetTable(calls, lua.LNumber(1)).String())
}

func TestLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "bad.lua"), []byte("function ("), 0o644))
	_, err := NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}
