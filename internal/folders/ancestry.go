package folders

import (
	"net/url"
	"path/filepath"
	"strings"
)

// IsAncestor reports whether folderURI contains fileURI.
//
// Scheme comparison is case-insensitive; host and port must match
// exactly, including the both-absent case. For file-scheme URIs
// containment is decided on native paths, which handles platform
// separator and normalization semantics. Other hierarchical schemes
// fall back to a `/`-segment prefix test.
//
// Passing an opaque URI on either side is a usage error and returns
// ErrOpaqueURI.
func IsAncestor(folderURI, fileURI *url.URL) (bool, error) {
	if folderURI.Opaque != "" || fileURI.Opaque != "" {
		return false, ErrOpaqueURI
	}
	if !strings.EqualFold(folderURI.Scheme, fileURI.Scheme) {
		return false, nil
	}
	if folderURI.Hostname() != fileURI.Hostname() {
		return false, nil
	}
	if folderURI.Port() != fileURI.Port() {
		return false, nil
	}
	if hasFileScheme(folderURI) {
		return isNativePathAncestor(nativePath(folderURI), nativePath(fileURI)), nil
	}
	return isSegmentPrefix(folderURI.Path, fileURI.Path), nil
}

func hasFileScheme(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, "file")
}

// nativePath converts a file-scheme URI path to a cleaned native path.
func nativePath(u *url.URL) string {
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// isNativePathAncestor reports whether file lies at or below folder.
func isNativePathAncestor(folder, file string) bool {
	if folder == file {
		return true
	}
	rel, err := filepath.Rel(folder, file)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isSegmentPrefix reports whether the folder path's `/`-separated
// segments are a prefix of the file path's segments.
func isSegmentPrefix(folderPath, filePath string) bool {
	folderSegs := pathSegments(folderPath)
	fileSegs := pathSegments(filePath)
	if len(folderSegs) > len(fileSegs) {
		return false
	}
	for i, seg := range folderSegs {
		if fileSegs[i] != seg {
			return false
		}
	}
	return true
}

// pathSegments splits on `/` and drops trailing empty segments, so a
// folder path with a trailing slash contains the same files as one
// without.
func pathSegments(path string) []string {
	segs := strings.Split(path, "/")
	for len(segs) > 0 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	return segs
}

// pathDepth is the number of non-empty segments, used to prefer the
// deepest folder when nested roots both contain a file.
func pathDepth(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
