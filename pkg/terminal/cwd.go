package terminal

import "path"

// resolvePath applies target to the virtual working directory cwd using
// client-side path arithmetic only: absolute targets replace, relative
// targets append, and ".." pops a segment without ever escaping "/".
// No remote round-trip happens here; whether the resulting directory
// exists is discovered by the next command execution.
func resolvePath(cwd, target string) string {
	if target == "" {
		return cwd
	}
	if path.IsAbs(target) {
		return path.Clean(target)
	}
	if cwd == "" {
		cwd = "/"
	}
	return path.Clean(path.Join(cwd, target))
}
