package hierarchy_test

import (
	"testing"

	"github.com/frahmantamala/org-management/internal/core/hierarchy"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestForest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Hierarchy Forest Suite")
}

func ptr(v int64) *int64 {
	return &v
}

var _ = Describe("Forest", func() {
	var forest *hierarchy.Forest

	Describe("DescendantsOf", func() {
		BeforeEach(func() {
			// 1 is root, 2 and 3 under 1, 4 under 2
			forest = hierarchy.NewForest(map[int64]*int64{
				1: nil,
				2: ptr(1),
				3: ptr(1),
				4: ptr(2),
			})
		})

		It("should return the transitive descendants excluding the node itself", func() {
			descendants := forest.DescendantsOf(1)

			Expect(descendants).To(HaveLen(3))
			Expect(descendants).To(HaveKey(int64(2)))
			Expect(descendants).To(HaveKey(int64(3)))
			Expect(descendants).To(HaveKey(int64(4)))
			Expect(descendants).NotTo(HaveKey(int64(1)))
		})

		It("should return an empty set for a leaf", func() {
			Expect(forest.DescendantsOf(4)).To(BeEmpty())
		})

		It("should return an empty set for an unknown id", func() {
			Expect(forest.DescendantsOf(99)).To(BeEmpty())
		})
	})

	Describe("ChildrenOf", func() {
		BeforeEach(func() {
			forest = hierarchy.NewForest(map[int64]*int64{
				1: nil,
				2: ptr(1),
				3: ptr(1),
				4: ptr(2),
			})
		})

		It("should return direct children only", func() {
			children := forest.ChildrenOf(1)

			Expect(children).To(ConsistOf(int64(2), int64(3)))
		})
	})

	Describe("AncestorChainOf", func() {
		Context("when the chain is intact", func() {
			BeforeEach(func() {
				forest = hierarchy.NewForest(map[int64]*int64{
					1: nil,
					2: ptr(1),
					4: ptr(2),
				})
			})

			It("should walk from immediate parent to root in order", func() {
				chain, err := forest.AncestorChainOf(4)

				Expect(err).NotTo(HaveOccurred())
				Expect(chain).To(Equal([]int64{2, 1}))
			})

			It("should return an empty chain for a root", func() {
				chain, err := forest.AncestorChainOf(1)

				Expect(err).NotTo(HaveOccurred())
				Expect(chain).To(BeEmpty())
			})
		})

		Context("when the stored parents form a cycle", func() {
			BeforeEach(func() {
				// corrupted snapshot: 1 -> 2 -> 1
				forest = hierarchy.NewForest(map[int64]*int64{
					1: ptr(2),
					2: ptr(1),
				})
			})

			It("should fail with ErrCycleDetected instead of looping", func() {
				_, err := forest.AncestorChainOf(1)

				Expect(err).To(MatchError(hierarchy.ErrCycleDetected))
			})

			It("should still terminate descendant walks", func() {
				descendants := forest.DescendantsOf(1)

				Expect(descendants).To(HaveLen(1))
				Expect(descendants).To(HaveKey(int64(2)))
			})
		})
	})

	Describe("WouldCycle", func() {
		BeforeEach(func() {
			forest = hierarchy.NewForest(map[int64]*int64{
				1: nil,
				2: ptr(1),
				4: ptr(2),
			})
		})

		It("should reject attaching a node under itself", func() {
			Expect(forest.WouldCycle(2, ptr(2))).To(BeTrue())
		})

		It("should reject attaching a node under its own descendant", func() {
			Expect(forest.WouldCycle(1, ptr(4))).To(BeTrue())
		})

		It("should allow attaching under an unrelated node", func() {
			Expect(forest.WouldCycle(4, ptr(1))).To(BeFalse())
		})

		It("should allow detaching to root", func() {
			Expect(forest.WouldCycle(4, nil)).To(BeFalse())
		})
	})

	Describe("Roots", func() {
		It("should list every node without a parent", func() {
			forest = hierarchy.NewForest(map[int64]*int64{
				1: nil,
				2: ptr(1),
				5: nil,
			})

			Expect(forest.Roots()).To(ConsistOf(int64(1), int64(5)))
		})
	})
})
