package permission_test

import (
	"encoding/json"
	"testing"

	"github.com/frahmantamala/identity-service/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Suite")
}

var _ = Describe("Resolve", func() {
	Context("with dotted permission names", func() {
		It("grants actions present in a resource list", func() {
			doc := permission.Document{
				"posts": permission.List("create", "read"),
			}

			Expect(permission.Resolve(doc, "posts.create")).To(BeTrue())
			Expect(permission.Resolve(doc, "posts.read")).To(BeTrue())
		})

		It("denies actions missing from a resource list", func() {
			doc := permission.Document{
				"posts": permission.List("create"),
			}

			Expect(permission.Resolve(doc, "posts.delete")).To(BeFalse())
		})

		It("returns action booleans verbatim", func() {
			doc := permission.Document{
				"posts": permission.Actions(map[string]permission.Action{
					"create": permission.Allow(true),
					"delete": permission.Allow(false),
				}),
			}

			Expect(permission.Resolve(doc, "posts.create")).To(BeTrue())
			Expect(permission.Resolve(doc, "posts.delete")).To(BeFalse())
		})

		It("denies actions absent from an action map", func() {
			doc := permission.Document{
				"posts": permission.Actions(map[string]permission.Action{
					"create": permission.Allow(true),
				}),
			}

			Expect(permission.Resolve(doc, "posts.publish")).To(BeFalse())
		})

		It("treats conditioned grants as granted", func() {
			doc := permission.Document{
				"posts": permission.Actions(map[string]permission.Action{
					"edit": permission.Conditional(map[string]any{"condition": "own_only"}),
				}),
			}

			Expect(permission.Resolve(doc, "posts.edit")).To(BeTrue())
		})

		It("denies when the resource key is absent", func() {
			doc := permission.Document{
				"posts": permission.List("create"),
			}

			Expect(permission.Resolve(doc, "comments.create")).To(BeFalse())
		})

		It("splits on the first dot only", func() {
			doc := permission.Document{
				"posts": permission.List("comments.create"),
			}

			Expect(permission.Resolve(doc, "posts.comments.create")).To(BeTrue())
			Expect(permission.Resolve(doc, "posts.comments")).To(BeFalse())
		})

		It("denies dotted lookups against a bare boolean resource", func() {
			doc := permission.Document{
				"posts": permission.Bool(true),
			}

			Expect(permission.Resolve(doc, "posts.create")).To(BeFalse())
		})
	})

	Context("with plain permission names", func() {
		It("consults a top-level permissions list first", func() {
			doc := permission.Document{
				"permissions": permission.List("view_profile", "edit_profile"),
			}

			Expect(permission.Resolve(doc, "view_profile")).To(BeTrue())
			Expect(permission.Resolve(doc, "delete_profile")).To(BeFalse())
		})

		It("returns top-level booleans verbatim", func() {
			doc := permission.Document{
				"can_moderate": permission.Bool(true),
				"can_publish":  permission.Bool(false),
			}

			Expect(permission.Resolve(doc, "can_moderate")).To(BeTrue())
			Expect(permission.Resolve(doc, "can_publish")).To(BeFalse())
		})

		It("treats any non-boolean top-level value as granted", func() {
			doc := permission.Document{
				"posts": permission.Actions(map[string]permission.Action{
					"create": permission.Allow(false),
				}),
			}

			Expect(permission.Resolve(doc, "posts")).To(BeTrue())
		})

		It("denies names with no matching shape", func() {
			doc := permission.Document{
				"posts": permission.List("create"),
			}

			Expect(permission.Resolve(doc, "create_post")).To(BeFalse())
		})
	})

	Context("with empty documents", func() {
		It("denies everything", func() {
			Expect(permission.Resolve(permission.Document{}, "anything")).To(BeFalse())
			Expect(permission.Resolve(nil, "anything")).To(BeFalse())
		})
	})

	It("is deterministic across repeated calls", func() {
		doc := permission.Document{
			"posts": permission.List("create", "read"),
		}

		first := permission.Resolve(doc, "posts.create")
		for i := 0; i < 100; i++ {
			Expect(permission.Resolve(doc, "posts.create")).To(Equal(first))
		}
	})
})

var _ = Describe("Merge", func() {
	It("seeds the result from the first document and copies new keys", func() {
		merged := permission.Merge(
			permission.Document{"posts": permission.List("create")},
			permission.Document{"comments": permission.List("read")},
		)

		Expect(merged.Keys()).To(ConsistOf("posts", "comments"))
	})

	It("unions lists without duplicates", func() {
		merged := permission.Merge(
			permission.Document{"posts": permission.List("create", "read")},
			permission.Document{"posts": permission.List("read", "delete")},
		)

		Expect(merged["posts"].List()).To(ConsistOf("create", "read", "delete"))
	})

	It("shallow-merges action maps with the later role winning", func() {
		merged := permission.Merge(
			permission.Document{"posts": permission.Actions(map[string]permission.Action{
				"create": permission.Allow(true),
				"delete": permission.Allow(false),
			})},
			permission.Document{"posts": permission.Actions(map[string]permission.Action{
				"delete": permission.Allow(true),
			})},
		)

		actions := merged["posts"].Actions()
		Expect(actions["create"].Allowed()).To(BeTrue())
		Expect(actions["delete"].Allowed()).To(BeTrue())
	})

	It("keeps the earlier value when shapes mismatch", func() {
		merged := permission.Merge(
			permission.Document{"posts": permission.List("create")},
			permission.Document{"posts": permission.Bool(true)},
		)

		Expect(merged["posts"].Kind()).To(Equal(permission.KindList))
	})
})

var _ = Describe("Document JSON", func() {
	It("round-trips all three value shapes", func() {
		raw := []byte(`{
			"posts": {"create": true, "edit": {"condition": "own_only"}, "publish": false},
			"comments": ["create", "read"],
			"can_moderate": true
		}`)

		doc, err := permission.ParseDocument(raw)
		Expect(err).NotTo(HaveOccurred())

		Expect(permission.Resolve(doc, "posts.create")).To(BeTrue())
		Expect(permission.Resolve(doc, "posts.edit")).To(BeTrue())
		Expect(permission.Resolve(doc, "posts.publish")).To(BeFalse())
		Expect(permission.Resolve(doc, "comments.read")).To(BeTrue())
		Expect(permission.Resolve(doc, "can_moderate")).To(BeTrue())

		encoded, err := json.Marshal(doc)
		Expect(err).NotTo(HaveOccurred())

		reparsed, err := permission.ParseDocument(encoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(permission.Resolve(reparsed, "posts.edit")).To(BeTrue())
		Expect(permission.Resolve(reparsed, "posts.publish")).To(BeFalse())
	})

	It("keeps the condition object available to callers", func() {
		raw := []byte(`{"posts": {"edit": {"condition": "own_only"}}}`)

		doc, err := permission.ParseDocument(raw)
		Expect(err).NotTo(HaveOccurred())

		action := doc["posts"].Actions()["edit"]
		Expect(action.IsConditional()).To(BeTrue())
		Expect(action.Condition()).To(HaveKeyWithValue("condition", "own_only"))
	})

	It("parses empty input as an empty document", func() {
		doc, err := permission.ParseDocument(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc).To(BeEmpty())
	})
})
