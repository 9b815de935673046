package od

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEDS = `
[1280]
ParameterName=SDO client parameter
ObjectType=0x9

[1280sub1]
ParameterName=COB-ID client to server
DataType=0x07
DefaultValue=0x600

[1280sub2]
ParameterName=COB-ID server to client
DataType=0x07
DefaultValue=0x580

[1280sub3]
ParameterName=Node ID of the SDO server
DataType=0x05
DefaultValue=1
`

func writeTempEDS(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.eds")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func TestLoadParsesClientParameterSection(t *testing.T) {
	path := writeTempEDS(t, sampleEDS)

	dict, err := Load(path)
	require.NoError(t, err)

	entry, err := dict.Entry(0x1280)
	require.NoError(t, err)

	txID, err := entry.Uint32(1)
	require.NoError(t, err)
	assert.EqualValues(t, 0x600, txID)

	rxID, err := entry.Uint32(2)
	require.NoError(t, err)
	assert.EqualValues(t, 0x580, rxID)

	nodeID, err := entry.Uint8(3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, nodeID)
}

func TestLoadUnknownIndexReturnsErrIdxNotExist(t *testing.T) {
	path := writeTempEDS(t, sampleEDS)

	dict, err := Load(path)
	require.NoError(t, err)

	_, err = dict.Entry(0x1281)
	assert.ErrorIs(t, err, ErrIdxNotExist)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.eds")
	assert.Error(t, err)
}
