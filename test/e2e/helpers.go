package e2e

import (
	"bytes"
	"testing"
)

// runOnAllConfigs is a helper that runs a test on all configurations
func runOnAllConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	runOnConfigs(t, AllConfigurations(), testFunc)
}

func runOnConfigs(t *testing.T, configs []*TestConfig, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	for _, config := range configs {
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// withGeometry returns copies of configs using the given disk layout.
func withGeometry(configs []*TestConfig, blockSize, numBlocks int, alphabet string) []*TestConfig {
	out := make([]*TestConfig, 0, len(configs))
	for _, c := range configs {
		cp := *c
		cp.BlockSize = blockSize
		cp.NumBlocks = numBlocks
		cp.Alphabet = alphabet
		out = append(out, &cp)
	}
	return out
}

// pattern returns n deterministic bytes seeded by seed.
func pattern(seed byte, n int) []byte {
	return bytes.Repeat([]byte{seed}, n)
}
