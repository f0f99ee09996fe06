package tables

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/ValentinKolb/dNT/lib/service/local"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalInstance(t *testing.T) *nt.Instance {
	t.Helper()
	svc, err := local.NewLocalService(nil)
	require.NoError(t, err)
	i := nt.NewInstance(svc)
	t.Cleanup(func() { _ = i.Close() })
	return i
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ, arg string
		want     nt.Value
	}{
		{"auto", "1.5", nt.Double(1.5)},
		{"auto", "3", nt.Double(3)},
		{"auto", "true", nt.Bool(true)},
		{"auto", "hello", nt.String("hello")},
		{"auto", "", nt.String("")},
		{"auto", "[1, 2.5]", nt.DoubleArray{1, 2.5}},
		{"auto", "[a, b]", nt.StringArray{"a", "b"}},
		{"bool", "false", nt.Bool(false)},
		{"double", "-2", nt.Double(-2)},
		{"string", "42", nt.String("42")},
		{"raw", "00ff", nt.Raw{0x00, 0xff}},
		{"bool[]", "true, false", nt.BoolArray{true, false}},
		{"double[]", "1,2", nt.DoubleArray{1, 2}},
		{"string[]", "", nt.StringArray{}},
	}

	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.arg, func(t *testing.T) {
			got, err := parseValue(tt.typ, tt.arg)
			require.NoError(t, err)
			assert.True(t, nt.Equal(tt.want, got), "got %#v", got)
		})
	}

	for _, bad := range [][2]string{{"double", "x"}, {"raw", "zz"}, {"bool[]", "1,maybe"}, {"float", "1"}, {"auto", "{a: 1}"}} {
		_, err := parseValue(bad[0], bad[1])
		assert.Error(t, err, "%s %s", bad[0], bad[1])
	}
}

func TestEvalExpr(t *testing.T) {
	v, err := evalExpr("value + 1", nt.Double(1))
	require.NoError(t, err)
	assert.Equal(t, nt.Double(2), v)

	v, err = evalExpr("!value", nt.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, nt.Bool(false), v)

	v, err = evalExpr("upper(value)", nt.String("abc"))
	require.NoError(t, err)
	assert.Equal(t, nt.String("ABC"), v)

	v, err = evalExpr("map(value, # * 2)", nt.DoubleArray{1, 2})
	require.NoError(t, err)
	assert.True(t, nt.Equal(nt.DoubleArray{2, 4}, v))

	v, err = evalExpr("entryType", nt.Double(0))
	require.NoError(t, err)
	assert.Equal(t, nt.String("Double"), v)

	_, err = evalExpr("value +", nt.Double(1))
	assert.Error(t, err)
}

func TestParseMask(t *testing.T) {
	mask, err := parseMask(nil)
	require.NoError(t, err)
	assert.Equal(t, nt.MaskAll(), mask)

	mask, err = parseMask([]string{"Double", "String"})
	require.NoError(t, err)
	assert.Equal(t, nt.NewMask(nt.TypeDouble, nt.TypeString), mask)

	_, err = parseMask([]string{"Float"})
	assert.Error(t, err)
}

func TestPrintEntries(t *testing.T) {
	color.NoColor = true

	i := newLocalInstance(t)
	e := i.GetEntry("/robot/speed")
	require.NoError(t, e.SetValue(nt.Double(1.25)))
	r := i.GetEntry("/robot/blob")
	require.NoError(t, r.SetValue(nt.Raw{0xca, 0xfe}))

	speed, err := viewOf(e)
	require.NoError(t, err)
	blob, err := viewOf(r)
	require.NoError(t, err)
	missing, err := viewOf(i.GetEntry("/robot/none"))
	require.NoError(t, err)
	assert.Nil(t, missing.Value)

	var buf bytes.Buffer
	require.NoError(t, printEntries(&buf, "text", []entryView{speed, blob, missing}))
	assert.Contains(t, buf.String(), "/robot/speed Double       1.25")
	assert.Contains(t, buf.String(), "cafe")
	assert.Contains(t, buf.String(), "/robot/none Unassigned   -")

	buf.Reset()
	require.NoError(t, printEntries(&buf, "yaml", []entryView{speed}))
	assert.Contains(t, buf.String(), "name: /robot/speed")
	assert.Contains(t, buf.String(), "type: Double")
	assert.Contains(t, buf.String(), "value: 1.25")

	assert.Error(t, printEntries(&buf, "xml", nil))
}

func TestRunCounter(t *testing.T) {
	i := newLocalInstance(t)
	e := i.GetEntry("/foo/bar/baz")

	var seen []nt.Value
	err := runCounter(context.Background(), e, time.Millisecond, 3, func(v nt.Value) {
		seen = append(seen, v)
	})
	require.NoError(t, err)
	assert.Equal(t, []nt.Value{nt.Double(0), nt.Double(1), nt.Double(2), nt.Double(3)}, seen)

	// a cancelled context stops the loop after the initial write
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seen = nil
	require.NoError(t, runCounter(ctx, e, time.Hour, 0, func(v nt.Value) {
		seen = append(seen, v)
	}))
	assert.Equal(t, []nt.Value{nt.Double(0)}, seen)
}
