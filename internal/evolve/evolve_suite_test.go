package evolve_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEvolve(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Evolve Suite")
}
