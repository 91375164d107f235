package particles

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func syncBody(dst, src *body) error {
	if src.Mass != 0 {
		dst.Mass = src.Mass
	}
	if src.Label != "" {
		dst.Label = src.Label
	}
	return nil
}

var _ = Describe("Mapping", func() {
	It("should mirror a store by value", func() {
		local := NewStore[body]("local")
		a := local.Add(body{Mass: 1})
		local.Add(body{Mass: 2})

		remote := NewStore[body]("remote")
		m := Mirror(remote, local)

		Expect(remote.Len()).To(Equal(2))
		Expect(m.Len()).To(Equal(2))

		counterpart, err := m.Translate(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(counterpart.Store()).To(BeIdenticalTo(remote))
		Expect(counterpart.Key()).NotTo(Equal(a.Key()))
		Expect(counterpart.Get().Mass).To(Equal(1.0))

		counterpart.Get().Mass = 10
		Expect(a.Get().Mass).To(Equal(1.0))
	})

	It("should reject references from another store", func() {
		local := NewStore[body]("local")
		local.Add(body{})
		m := Mirror(NewStore[body]("remote"), local)

		stray := NewStore[body]("stray").Add(body{})
		_, err := m.Translate(stray)
		Expect(err).To(MatchError(ErrUnmapped))
	})

	It("should refuse stores of different length", func() {
		a := NewStore[body]("a")
		b := NewStore[body]("b")
		a.Add(body{})

		_, err := Match(a, b)
		Expect(err).To(MatchError(ErrCorrespondence))
	})
})

var _ = Describe("Channel", func() {
	var (
		engine *Store[body]
		model  *Store[body]
		ch     *Channel[body]
	)

	BeforeEach(func() {
		model = NewStore[body]("model")
		model.AddMany([]body{{Mass: 1, Label: "a"}, {Mass: 2, Label: "b"}})

		engine = NewStore[body]("engine")
		Mirror(engine, model)

		var err error
		ch, err = engine.NewChannelTo(model, syncBody)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should copy current source attributes by position", func() {
		engine.At(0).Get().Mass = 0.9
		engine.At(1).Get().Mass = 1.8

		Expect(ch.Copy()).To(Succeed())
		Expect(model.At(0).Get().Mass).To(Equal(0.9))
		Expect(model.At(1).Get().Mass).To(Equal(1.8))
	})

	It("should leave attributes absent on the source untouched", func() {
		engine.At(0).Get().Label = ""

		Expect(ch.Copy()).To(Succeed())
		Expect(model.At(0).Get().Label).To(Equal("a"))
	})

	It("should be idempotent", func() {
		engine.At(1).Get().Mass = 3

		Expect(ch.Copy()).To(Succeed())
		first := model.Values()
		Expect(ch.Copy()).To(Succeed())
		Expect(model.Values()).To(Equal(first))
	})

	It("should reflect the latest source state on every copy", func() {
		engine.At(0).Get().Mass = 4
		Expect(ch.Copy()).To(Succeed())
		engine.At(0).Get().Mass = 5
		Expect(ch.Copy()).To(Succeed())

		Expect(model.At(0).Get().Mass).To(Equal(5.0))
	})

	It("should not cover entities added after binding", func() {
		engine.Add(body{Mass: 8})
		model.Add(body{Mass: 9})

		Expect(ch.Copy()).To(Succeed())
		Expect(model.At(2).Get().Mass).To(Equal(9.0))
	})

	It("should require a matching destination", func() {
		_, err := engine.NewChannelTo(NewStore[body]("empty"), syncBody)
		Expect(err).To(MatchError(ErrCorrespondence))
	})
})
