package tkutil

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	evalext "modernc.org/tk9.0/extensions/eval"
)

func Eval(format string, a ...any) (string, error) {
	eval := fmt.Sprintf(format, a...)
	r, err := evalext.Eval(eval)
	if err != nil {
		return "", fmt.Errorf("tk eval=%s; err=%w", eval, err)
	}
	return r, nil
}

func EvalOrEmpty(format string, a ...any) string {
	out, err := Eval(format, a...)
	if err != nil {
		slog.Debug("tk eval or empty", slog.Any("error", err))
		return ""
	}
	return out
}

// Atoi parses a Tk integer result, truncating floats and returning 0 on
// anything else.
func Atoi(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if f, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return v
}

// ParseView parses the fraction pair returned by "yview" and "xview".
func ParseView(raw string) (first, last float64, err error) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("unexpected view output %q", raw)
	}
	if first, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, err
	}
	if last, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, err
	}
	return first, last, nil
}
