// Package aot decodes ahead-of-time class-data-sharing cache files written by
// a 64-bit HotSpot JVM.
//
// A decode pass reads the file header and the five region descriptors,
// snapshots each region, scans the rw region for klass vtable signatures,
// decodes every candidate record and resolves its name symbol against the
// whole file. Records are located heuristically, so candidates that fail to
// decode or whose name does not resolve are dropped as noise. Records that
// decode but contradict the layout are reported as *LayoutError.
//
// Inspector runs such a pass per query:
//
//	in := aot.NewInspector(aot.WithLogger(logger))
//	size, err := in.ClassSize(ctx, "app.aot", "java.lang.String")
package aot
