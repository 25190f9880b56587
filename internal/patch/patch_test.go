package patch

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestBuilderShapes(t *testing.T) {
	ops := NewBuilder(3).
		Add("/dossier/policies/-", map[string]interface{}{"policy_id": "d-1"}).
		Replace("/dossier/status", "RETIRED").
		Remove("/dossier/policies/0").
		Build()

	require.Len(t, ops, 3)
	require.Equal(t, OpAdd, ops[0].Op)
	require.JSONEq(t, `{"policy_id":"d-1"}`, string(ops[0].Value))
	require.Equal(t, OpReplace, ops[1].Op)
	require.JSONEq(t, `"RETIRED"`, string(ops[1].Value))
	require.Equal(t, OpRemove, ops[2].Op)
	require.Nil(t, ops[2].Value)
}

func TestApplyObjectOps(t *testing.T) {
	doc := decode(t, `{"dossier":{"status":"ACTIVE","retirement_date":null}}`)

	ops := NewBuilder(2).
		Replace("/dossier/status", "RETIRED").
		Replace("/dossier/retirement_date", "2030-01-01").
		Build()

	got, err := Apply(doc, ops)
	require.NoError(t, err)
	require.Equal(t, decode(t, `{"dossier":{"status":"RETIRED","retirement_date":"2030-01-01"}}`), got)
}

func TestApplyArrayAppendAndRemove(t *testing.T) {
	doc := decode(t, `{"policies":[{"id":"a"}]}`)

	appended, err := Apply(doc, NewBuilder(1).Add("/policies/-", map[string]interface{}{"id": "b"}).Build())
	require.NoError(t, err)
	require.Equal(t, decode(t, `{"policies":[{"id":"a"},{"id":"b"}]}`), appended)

	removed, err := Apply(appended, NewBuilder(1).Remove("/policies/1").Build())
	require.NoError(t, err)
	require.Equal(t, decode(t, `{"policies":[{"id":"a"}]}`), removed)
}

func TestApplyArrayInsertAtIndex(t *testing.T) {
	doc := decode(t, `["a","c"]`)

	got, err := Apply(doc, NewBuilder(1).Add("/1", "b").Build())
	require.NoError(t, err)
	require.Equal(t, decode(t, `["a","b","c"]`), got)
}

func TestApplyReplaceRoot(t *testing.T) {
	doc := decode(t, `{"dossier":null}`)

	got, err := Apply(doc, []Op{{Op: OpReplace, Path: "", Value: json.RawMessage(`{"dossier":{"status":"ACTIVE"}}`)}})
	require.NoError(t, err)
	require.Equal(t, decode(t, `{"dossier":{"status":"ACTIVE"}}`), got)
}

func TestApplyEscapedKeys(t *testing.T) {
	doc := decode(t, `{"a/b":1,"c~d":2}`)

	got, err := Apply(doc, NewBuilder(2).
		Replace("/"+EscapeKey("a/b"), 10).
		Replace("/"+EscapeKey("c~d"), 20).
		Build())
	require.NoError(t, err)
	require.Equal(t, decode(t, `{"a/b":10,"c~d":20}`), got)
}

func TestApplyErrors(t *testing.T) {
	doc := decode(t, `{"policies":[]}`)

	_, err := Apply(doc, NewBuilder(1).Remove("/policies/3").Build())
	require.Error(t, err)

	_, err = Apply(decode(t, `{"a":1}`), NewBuilder(1).Remove("/missing").Build())
	require.Error(t, err)

	_, err = Apply(decode(t, `{"a":1}`), []Op{{Op: "move", Path: "/a"}})
	require.Error(t, err)

	_, err = Apply(decode(t, `{"a":1}`), []Op{{Op: OpReplace, Path: "no-slash", Value: json.RawMessage("1")}})
	require.Error(t, err)
}
