package walk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ftpsheep/ftpsheep/internal/models"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string, size int) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
}

func TestClassify(t *testing.T) {
	cases := map[string]models.FileKind{
		"app_offline.htm":    models.KindAppOffline,
		"Web.config":         models.KindWebConfig,
		"bin/App.dll":        models.KindAssembly,
		"css/site.css":       models.KindStatic,
		"data/readme.txt":    models.KindOther,
	}
	for path, want := range cases {
		require.Equal(t, want, Classify(path), path)
	}
}

func TestWalkOrdersSmallestFirstAndExtractsAppOffline(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.html", 2048)
	writeFile(t, root, "a.dll", 1024)
	writeFile(t, root, "c.css", 512)
	writeFile(t, root, "app_offline.htm", 64)

	res, err := Walk(root, nil)
	require.NoError(t, err)
	require.NotNil(t, res.AppOffline)
	require.Equal(t, "app_offline.htm", res.AppOffline.RelativePath)
	require.Len(t, res.Files, 3)

	for i := 1; i < len(res.Files); i++ {
		require.LessOrEqual(t, res.Files[i-1].Size, res.Files[i].Size)
	}
}

func TestWalkAppliesExclusionGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "obj/Debug/temp.dll", 10)
	writeFile(t, root, "index.html", 10)
	writeFile(t, root, "site.user", 10)

	res, err := Walk(root, []string{"**/obj/**", "**/*.user"})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	require.Equal(t, "index.html", res.Files[0].RelativePath)
}

func TestEmptyPublishTree(t *testing.T) {
	root := t.TempDir()
	res, err := Walk(root, nil)
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Nil(t, res.AppOffline)
}
