package security

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

func TestCheckWriteBlocksConfiguredKeyword(t *testing.T) {
	cfg := config.Default()
	err := CheckWrite(&cfg, "DELETE FROM t WHERE id = 1")
	require.NotNil(t, err)
	require.Equal(t, cperrors.WriteBlocked, err.Kind)
}

func TestCheckWriteAllowsSelect(t *testing.T) {
	cfg := config.Default()
	require.Nil(t, CheckWrite(&cfg, "SELECT * FROM t"))
}

func TestCheckWriteDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Security.BlockWrites = false
	require.Nil(t, CheckWrite(&cfg, "DELETE FROM t"))
}

func TestCheckWriteEmptyQuery(t *testing.T) {
	cfg := config.Default()
	require.Nil(t, CheckWrite(&cfg, ""))
}
