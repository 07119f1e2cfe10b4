package usecase

import (
	"context"
	"strings"
)

func pathExists(ctx context.Context, fs FileSystemPort, path string) (bool, error) {
	info, err := fs.Stat(ctx, path)
	if err != nil {
		if fs.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil, nil
}

// ExpandHomeDirPublic expands ~ and $HOME prefixes in path.
func ExpandHomeDirPublic(path, homeDir string) string {
	return expandHomeDir(path, homeDir)
}

func expandHomeDir(path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return clean
	}
	for _, prefix := range []string{"~", "$HOME", "${HOME}"} {
		if clean == prefix {
			return homeDir
		}
		if strings.HasPrefix(clean, prefix+"/") {
			return strings.TrimRight(homeDir, "/") + clean[len(prefix):]
		}
	}
	return clean
}

// ContractHomeDirPublic replaces a leading homeDir with ~ for display.
func ContractHomeDirPublic(path, homeDir string) string {
	return contractHomeDir(path, homeDir, '/')
}

func contractHomeDir(path, homeDir string, sep byte) string {
	if homeDir == "" || path == "" {
		return path
	}
	if path == homeDir {
		return "~"
	}
	prefix := homeDir + string(sep)
	if strings.HasPrefix(path, prefix) {
		return "~" + string(sep) + path[len(prefix):]
	}
	return path
}

func normalizePath(fs FileSystemPort, path, homeDir string) string {
	clean := strings.TrimSpace(path)
	if clean == "" {
		return ""
	}
	cleaned := fs.Clean(expandHomeDir(clean, homeDir))
	if cleaned == "." {
		return ""
	}
	if cleaned == "/" {
		return cleaned
	}
	return strings.TrimRight(cleaned, "/")
}
