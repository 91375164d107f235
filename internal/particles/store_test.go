package particles

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type body struct {
	Mass  float64
	Label string
	Peer  Ref[body]
}

var _ = Describe("Store", func() {
	var store *Store[body]

	BeforeEach(func() {
		store = NewStore[body]("bodies")
	})

	It("should keep insertion order", func() {
		store.AddMany([]body{{Mass: 1}, {Mass: 2}, {Mass: 3}})

		Expect(store.Len()).To(Equal(3))
		masses := []float64{}
		for _, b := range store.All() {
			masses = append(masses, b.Mass)
		}
		Expect(masses).To(Equal([]float64{1, 2, 3}))
	})

	It("should return a live handle to the stored copy", func() {
		original := body{Mass: 1}
		ref := store.Add(original)

		original.Mass = 99
		Expect(ref.Get().Mass).To(Equal(1.0))

		ref.Get().Mass = 5
		got, ok := store.Get(ref.Key())
		Expect(ok).To(BeTrue())
		Expect(got.Mass).To(Equal(5.0))
	})

	It("should mint a fresh identity on every add", func() {
		a := store.Add(body{})
		b := store.Add(body{})
		other := NewStore[body]("other")
		c := other.Add(body{})

		Expect(a.Key()).NotTo(Equal(b.Key()))
		Expect(c.Key()).NotTo(Equal(a.Key()))
		Expect(c.Key()).NotTo(Equal(b.Key()))
	})

	It("should only contain its own handles", func() {
		ref := store.Add(body{})
		other := NewStore[body]("other")

		Expect(store.Contains(ref)).To(BeTrue())
		Expect(other.Contains(ref)).To(BeFalse())
		Expect(store.Contains(Ref[body]{})).To(BeFalse())

		i, ok := store.IndexOf(ref)
		Expect(ok).To(BeTrue())
		Expect(i).To(Equal(0))
		Expect(store.At(0).Equal(ref)).To(BeTrue())
	})

	It("should accept entities without attributes", func() {
		ref := store.Add(body{})
		Expect(ref.Get()).NotTo(BeNil())
		Expect(ref.Get().Peer.IsNil()).To(BeTrue())
		Expect(Ref[body]{}.Get()).To(BeNil())
	})

	It("should stop iteration early", func() {
		store.AddMany([]body{{}, {}, {}})
		seen := 0
		for range store.All() {
			seen++
			break
		}
		Expect(seen).To(Equal(1))
	})

	It("should hand out value copies", func() {
		store.Add(body{Mass: 1})
		values := store.Values()
		values[0].Mass = 7
		Expect(store.At(0).Get().Mass).To(Equal(1.0))
	})
})
