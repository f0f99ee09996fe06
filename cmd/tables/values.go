package tables

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dNT/lib/nt"
	"github.com/expr-lang/expr"
	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
)

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// splitList splits a comma separated list, an empty string is an empty list
func splitList(arg string) []string {
	if strings.TrimSpace(arg) == "" {
		return []string{}
	}
	parts := strings.Split(arg, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseValue converts a command line argument into a value of the given type.
// The type "auto" reads arg as a YAML scalar or flow sequence.
func parseValue(typ, arg string) (nt.Value, error) {
	switch strings.ToLower(typ) {
	case "", "auto":
		if strings.TrimSpace(arg) == "" {
			return nt.String(arg), nil
		}
		var x any
		if err := yaml.Unmarshal([]byte(arg), &x); err != nil {
			return nil, fmt.Errorf("cannot parse %q: %w", arg, err)
		}
		if x == nil {
			return nt.String(arg), nil
		}
		return nt.FromNative(x)
	case "bool", "boolean":
		b, err := strconv.ParseBool(arg)
		return nt.Bool(b), err
	case "double":
		d, err := strconv.ParseFloat(arg, 64)
		return nt.Double(d), err
	case "string":
		return nt.String(arg), nil
	case "raw":
		b, err := hex.DecodeString(arg)
		return nt.Raw(b), err
	case "bool[]", "boolean[]":
		parts := splitList(arg)
		out := make(nt.BoolArray, len(parts))
		for i, p := range parts {
			b, err := strconv.ParseBool(p)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	case "double[]":
		parts := splitList(arg)
		out := make(nt.DoubleArray, len(parts))
		for i, p := range parts {
			d, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case "string[]":
		return nt.StringArray(splitList(arg)), nil
	default:
		return nil, fmt.Errorf("invalid type %s (expected one of: auto, bool, double, string, raw, bool[], double[], string[])", typ)
	}
}

// evalExpr evaluates an expr-lang expression with the current value bound
// to "value" (and its type name to "entryType") and converts the result back
// into a value
func evalExpr(code string, v nt.Value) (nt.Value, error) {
	env := map[string]any{
		"value":     nt.Native(v),
		"entryType": v.Type().String(),
	}
	out, err := expr.Eval(code, env)
	if err != nil {
		return nil, err
	}
	return nt.FromNative(out)
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// entryView is the printable form of an entry
type entryView struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Value      any    `yaml:"value,omitempty"`
	LastChange uint64 `yaml:"last_change"`
}

// connectionView is the printable form of a connection
type connectionView struct {
	RemoteID        string `yaml:"remote_id"`
	RemoteIP        string `yaml:"remote_ip"`
	RemotePort      uint32 `yaml:"remote_port"`
	LastUpdate      uint64 `yaml:"last_update"`
	ProtocolVersion string `yaml:"protocol_version"`
}

func viewOf(e nt.Entry) (entryView, error) {
	name, ok := e.Name()
	if !ok {
		name = fmt.Sprintf("%q", e.NameBytes())
	}
	view := entryView{
		Name:       name,
		Type:       e.Type().String(),
		LastChange: uint64(e.LastChanged()),
	}

	v, err := e.GetValue()
	if err != nil {
		return view, err
	}
	if raw, isRaw := v.(nt.Raw); isRaw {
		view.Value = hex.EncodeToString(raw)
	} else if v != nil {
		view.Value = nt.Native(v)
	}
	return view, nil
}

func connectionViewOf(c nt.ConnectionInfo) connectionView {
	return connectionView{
		RemoteID:        c.RemoteID(),
		RemoteIP:        c.RemoteIPString(),
		RemotePort:      c.RemotePort(),
		LastUpdate:      uint64(c.LastUpdate()),
		ProtocolVersion: fmt.Sprintf("%#04x", c.ProtocolVersion()),
	}
}

// typeColor returns the color an entry type is printed in
func typeColor(typ string) func(format string, a ...interface{}) string {
	switch typ {
	case nt.TypeBoolean.String(), nt.TypeBooleanArray.String():
		return color.MagentaString
	case nt.TypeDouble.String(), nt.TypeDoubleArray.String():
		return color.CyanString
	case nt.TypeString.String(), nt.TypeStringArray.String():
		return color.GreenString
	case nt.TypeRaw.String(), nt.TypeRpc.String():
		return color.YellowString
	default:
		return color.HiBlackString
	}
}

func formatNative(x any) string {
	switch v := x.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	case []float64:
		parts := make([]string, len(v))
		for i, d := range v {
			parts[i] = strconv.FormatFloat(d, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}

// printEntries writes entries as colored text or YAML
func printEntries(w io.Writer, format string, views []entryView) error {
	switch format {
	case "yaml":
		return writeYAML(w, views)
	case "text", "":
		for _, v := range views {
			_, err := fmt.Fprintf(w, "%s %s %s\n",
				color.New(color.Bold).Sprint(v.Name),
				typeColor(v.Type)("%-12s", v.Type),
				formatNative(v.Value),
			)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid output format %s (expected one of: text, yaml)", format)
	}
}

// printConnections writes connections as a table or YAML
func printConnections(w io.Writer, format string, views []connectionView) error {
	switch format {
	case "yaml":
		return writeYAML(w, views)
	case "text", "":
		if len(views) == 0 {
			_, err := fmt.Fprintln(w, color.HiBlackString("no connections"))
			return err
		}
		for _, c := range views {
			_, err := fmt.Fprintf(w, "%s %s:%d last update %d (protocol %s)\n",
				color.New(color.Bold).Sprintf("%-24s", c.RemoteID),
				c.RemoteIP, c.RemotePort, c.LastUpdate, c.ProtocolVersion,
			)
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid output format %s (expected one of: text, yaml)", format)
	}
}

func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
