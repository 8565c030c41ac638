package engine

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/nestdb/nestreport/internal/platform"
)

// AssetSelector picks the best downloadable asset from a release using an
// ordered list of glob patterns, most-preferred first.
type AssetSelector struct {
	patterns []glob.Glob
	sources  []string
	logger   *zap.Logger
}

// PreferredPatterns builds the default pattern order for a platform:
// platform-specific binary archives first, generic archives next, source
// archives last. Matching is case-insensitive (patterns and names are
// lowered before compiling and matching).
func PreferredPatterns(info *platform.Info) []string {
	osTok := info.OSToken()
	archTok := info.ArchToken()
	return []string{
		fmt.Sprintf("*%s*%s*.zip", osTok, archTok),
		fmt.Sprintf("*%s*%s*.tar.gz", osTok, archTok),
		fmt.Sprintf("*%s*.zip", osTok),
		fmt.Sprintf("*%s*.tar.gz", osTok),
		"*.nupkg",
		"*.zip",
		"*.tgz",
		"*.tar.gz",
		"*source*",
		"*src*",
	}
}

// NewAssetSelector compiles the given patterns in order. Invalid patterns
// are rejected.
func NewAssetSelector(patterns []string, logger *zap.Logger) (*AssetSelector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AssetSelector{logger: logger}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("compile asset pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, g)
		s.sources = append(s.sources, p)
	}
	return s, nil
}

// Select returns the best-matching asset, or nil when the list is empty.
// For the first pattern with at least one match, the smallest asset wins:
// within one pattern a smaller file is more likely a compiled binary than a
// bundled source tree. When no pattern matches anything, the first asset is
// returned as a last resort.
func (s *AssetSelector) Select(assets []Asset) *Asset {
	if len(assets) == 0 {
		return nil
	}

	for i, g := range s.patterns {
		var best *Asset
		for j := range assets {
			if !g.Match(strings.ToLower(assets[j].Name)) {
				continue
			}
			if best == nil || assets[j].Size < best.Size {
				best = &assets[j]
			}
		}
		if best != nil {
			s.logger.Debug("asset selected",
				zap.String("asset", best.Name),
				zap.String("pattern", s.sources[i]))
			return best
		}
	}

	s.logger.Debug("no asset pattern matched, using first asset",
		zap.String("asset", assets[0].Name))
	return &assets[0]
}
