package capability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chronosproxy/proxy/internal/analysis"
	"github.com/chronosproxy/proxy/internal/config"
	cperrors "github.com/chronosproxy/proxy/internal/errors"
)

func parse(t *testing.T, sql string) *analysis.AST {
	t.Helper()
	a, err := analysis.Parse(sql)
	require.NoError(t, err)
	t.Cleanup(func() { analysis.Repool(a) })
	return a
}

func TestCheckRejectsJoinsWhenUnsupported(t *testing.T) {
	cfg := config.Default()
	cfg.Capabilities.UnsupportedFeatures = []string{"joins"}
	a := parse(t, "SELECT * FROM a JOIN b ON a.id = b.id")
	err := Check(&cfg, a)
	require.NotNil(t, err)
	require.Equal(t, cperrors.UnsupportedJoin, err.Kind)
}

func TestCheckAllowsJoinsByDefault(t *testing.T) {
	cfg := config.Default()
	a := parse(t, "SELECT * FROM a JOIN b ON a.id = b.id")
	require.Nil(t, Check(&cfg, a))
}

func TestCheckRejectsUnions(t *testing.T) {
	cfg := config.Default()
	cfg.Capabilities.UnsupportedFeatures = []string{"unions"}
	a := parse(t, "SELECT a FROM t UNION SELECT b FROM u")
	err := Check(&cfg, a)
	require.NotNil(t, err)
	require.Equal(t, cperrors.UnsupportedUnion, err.Kind)
}

func TestCheckRejectsUnsupportedFunction(t *testing.T) {
	cfg := config.Default()
	cfg.Capabilities.UnsupportedFunctions = []string{"RAND"}
	a := parse(t, "SELECT RAND() FROM t")
	err := Check(&cfg, a)
	require.NotNil(t, err)
	require.Equal(t, cperrors.UnsupportedFunction, err.Kind)
}

func TestCheckOrderJoinsBeforeUnions(t *testing.T) {
	cfg := config.Default()
	cfg.Capabilities.UnsupportedFeatures = []string{"joins", "unions"}
	a := parse(t, "SELECT * FROM a JOIN b ON a.id=b.id UNION SELECT * FROM c JOIN d ON c.id=d.id")
	err := Check(&cfg, a)
	require.NotNil(t, err)
	require.Equal(t, cperrors.UnsupportedJoin, err.Kind)
}
