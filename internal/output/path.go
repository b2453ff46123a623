package output

import (
	"path/filepath"
	"strings"
)

// DefaultSuffix is appended to the VCF stem to name the output.
const DefaultSuffix = "_pharmacogenomics"

// DerivePath returns the output path for a VCF: the same directory, the VCF
// name with up to two extensions removed (sample.vcf.gz -> sample), then
// suffix and ext. ext may be given with or without a leading dot.
func DerivePath(vcfPath, suffix, ext string) string {
	dir, base := filepath.Split(vcfPath)

	stem := base
	for range 2 {
		e := filepath.Ext(stem)
		if e == "" || e == stem {
			break
		}
		stem = strings.TrimSuffix(stem, e)
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(dir, stem+suffix+ext)
}
