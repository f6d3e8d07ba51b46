package graph

import "log/slog"

// Decorate attaches refs to the rows of their target commits, preserving the
// enumeration order of refs. It must run before l is published. Refs whose
// target is not in the layout are skipped; the count is returned.
func Decorate(l *Layout, refs []Ref) int {
	skipped := 0
	for _, ref := range refs {
		row, ok := l.RowOf(ref.Target)
		if !ok {
			skipped++
			slog.Debug("ref target not in graph",
				slog.String("ref", ref.Name),
				slog.String("target", ref.Target.Short()),
			)
			continue
		}
		l.rows[row].Labels = append(l.rows[row].Labels, RefLabel{
			Name:   ref.Name,
			Kind:   ref.Kind,
			IsHead: ref.IsHead,
		})
	}
	return skipped
}
