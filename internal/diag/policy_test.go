package diag_test

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/qtkern/internal/diag"
)

var _ = Describe("Policy", func() {
	var (
		buf *bytes.Buffer
		p   *diag.Policy
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		p = diag.New(buf, 3)
	})

	It("starts with every flag cleared", func() {
		Expect(p.SuppressErr()).To(BeFalse())
		Expect(p.Slots()).To(Equal(3))
		for i := 0; i < p.Slots(); i++ {
			Expect(p.SuppressWrn(i)).To(BeFalse())
		}
		Expect(buf.Len()).To(BeZero())
	})

	It("falls back to the default slot count", func() {
		Expect(diag.New(buf, 0).Slots()).To(Equal(diag.DefaultSlots))
	})

	Describe("ReportError", func() {
		It("prints once and keeps the flag set", func() {
			p.ReportError(errors.New("singular matrix"))
			p.ReportError(errors.New("another failure"))

			out := buf.String()
			Expect(strings.Count(out, "Could not solve")).To(Equal(1))
			Expect(out).To(ContainSubstring("singular matrix"))
			Expect(out).NotTo(ContainSubstring("another failure"))
			Expect(p.SuppressErr()).To(BeTrue())
		})

		It("lists the remediation strategies", func() {
			p.ReportError(errors.New("boom"))
			Expect(buf.String()).To(And(
				ContainSubstring("out-of-band states"),
				ContainSubstring("norm_row"),
				ContainSubstring("symq=false"),
				ContainSubstring("lsqr"),
			))
		})

		It("tolerates a nil cause", func() {
			Expect(func() { p.ReportError(nil) }).NotTo(Panic())
			Expect(p.SuppressErr()).To(BeTrue())
		})

		It("does not touch warning slots", func() {
			p.ReportError(errors.New("boom"))
			for i := 0; i < p.Slots(); i++ {
				Expect(p.SuppressWrn(i)).To(BeFalse())
			}
		})
	})

	Describe("ReportWarning", func() {
		It("prints only the first message of a slot", func() {
			p.ReportWarning(1, "first")
			p.ReportWarning(1, "second")
			Expect(buf.String()).To(Equal("first\n"))
			Expect(p.SuppressWrn(1)).To(BeTrue())
		})

		It("keeps slots independent", func() {
			p.ReportError(errors.New("boom"))
			p.ReportWarning(0, "zero")
			buf.Reset()

			p.ReportWarning(2, "two")
			Expect(buf.String()).To(Equal("two\n"))
			Expect(p.SuppressWrn(1)).To(BeFalse())
		})

		It("panics on an undefined slot", func() {
			Expect(func() { p.ReportWarning(3, "x") }).To(Panic())
			Expect(func() { p.ReportWarning(-1, "x") }).To(Panic())
		})
	})

	It("never clears a flag once set", func() {
		p.ReportWarning(0, "a")
		p.ReportError(errors.New("b"))
		before := p.Snapshot()

		for i := 0; i < 10; i++ {
			p.ReportError(errors.New("again"))
			p.ReportWarning(i%p.Slots(), "again")
			snap := p.Snapshot()
			Expect(snap.SuppressErr).To(BeTrue())
			for j, w := range before.SuppressWrn {
				if w {
					Expect(snap.SuppressWrn[j]).To(BeTrue())
				}
			}
		}
		Expect(p.Snapshot().Reported()).To(Equal(4))
	})

	It("keeps separate policies independent", func() {
		other := &bytes.Buffer{}
		q := diag.New(other, 3)

		p.ReportError(errors.New("boom"))
		p.ReportWarning(0, "w")

		Expect(q.SuppressErr()).To(BeFalse())
		Expect(q.SuppressWrn(0)).To(BeFalse())

		q.ReportWarning(0, "w")
		Expect(other.String()).To(Equal("w\n"))
	})

	It("returns a snapshot detached from the policy", func() {
		snap := p.Snapshot()
		p.ReportWarning(0, "w")
		Expect(snap.SuppressWrn[0]).To(BeFalse())
	})

	It("writes to the redirected output", func() {
		other := &bytes.Buffer{}
		p.SetOutput(other)
		p.ReportWarning(0, "moved")
		Expect(buf.Len()).To(BeZero())
		Expect(other.String()).To(Equal("moved\n"))
	})
})
