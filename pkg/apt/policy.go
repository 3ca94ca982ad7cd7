package apt

import "fmt"

// WritePolicy governs whether an existing stored path may be
// overwritten.
type WritePolicy string

const (
	// WritePolicyAllow permits unrestricted overwrites.
	WritePolicyAllow WritePolicy = "ALLOW"
	// WritePolicyAllowOnce permits a path to be written exactly once.
	WritePolicyAllowOnce WritePolicy = "ALLOW_ONCE"
	// WritePolicyDeny rejects all writes.
	WritePolicyDeny WritePolicy = "DENY"
)

// EffectiveWritePolicy resolves the policy that applies to a given
// asset path. Package binaries are immutable once published, so
// ALLOW_ONCE sticks for .deb paths, while index and metadata files
// must remain regenerable and are relaxed to ALLOW. Any other base
// policy passes through unchanged.
func EffectiveWritePolicy(base WritePolicy, path string) WritePolicy {
	if base == WritePolicyAllowOnce && !IsDebPackage(path) {
		return WritePolicyAllow
	}
	return base
}

// WriteDeniedError indicates that the effective write policy rejected
// an overwrite. Nothing was mutated.
type WriteDeniedError struct {
	Path   string
	Policy WritePolicy
}

func (e *WriteDeniedError) Error() string {
	return fmt.Sprintf("write policy %s denies writing to %s", e.Policy, e.Path)
}
