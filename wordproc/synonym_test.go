package wordproc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDictFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synonyms.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDictExpander_Synonyms(t *testing.T) {
	path := writeDictFile(t, `# 测试词典
收益,收入,营收
车辆 汽车
`)

	expander, err := NewDictExpander(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"收入", "营收"}, expander.Synonyms("收益"))
	assert.ElementsMatch(t, []string{"收益", "营收"}, expander.Synonyms("收入"))
	assert.Equal(t, []string{"汽车"}, expander.Synonyms("车辆"))
}

func TestDictExpander_UnknownWord(t *testing.T) {
	path := writeDictFile(t, "收益,收入\n")

	expander, err := NewDictExpander(path)
	require.NoError(t, err)

	assert.Empty(t, expander.Synonyms("车牌号"))
	assert.Empty(t, expander.Synonyms(""))
}

func TestDictExpander_CaseInsensitive(t *testing.T) {
	path := writeDictFile(t, "Revenue,收入\n")

	expander, err := NewDictExpander(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"收入"}, expander.Synonyms("revenue"))
	assert.Equal(t, []string{"收入"}, expander.Synonyms("REVENUE"))
}

func TestDictExpander_OneHopOnly(t *testing.T) {
	// 两个组共享成员时，只返回查询词所在行的组员，不跨组传递
	path := writeDictFile(t, `营收,收入
收入,进账
`)

	expander, err := NewDictExpander(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"收入"}, expander.Synonyms("营收"))
	assert.NotContains(t, expander.Synonyms("营收"), "进账")
	assert.ElementsMatch(t, []string{"营收", "进账"}, expander.Synonyms("收入"))
}

func TestDictExpander_SingleWordLine(t *testing.T) {
	path := writeDictFile(t, "孤立词\n收益,收入\n")

	expander, err := NewDictExpander(path)
	require.NoError(t, err)

	assert.Empty(t, expander.Synonyms("孤立词"))
}

func TestDictExpander_MissingFile(t *testing.T) {
	_, err := NewDictExpander(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNONYM_DICT_UNREADABLE")
}
