package user

import (
	"context"
	"testing"

	ginkgo "github.com/onsi/ginkgo/v2"
	gomega "github.com/onsi/gomega"

	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
)

func TestUser(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "User Suite")
}

type mockRepository struct {
	users map[int64]*User
}

func (m *mockRepository) Create(_ context.Context, u *User) error {
	m.users[u.ID] = u
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == CanonicalEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) UpdateProfile(_ context.Context, id int64, firstName, lastName string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.FirstName = firstName
	u.LastName = lastName
	return nil
}

func (m *mockRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

type mockAggregator struct {
	lastPrincipal role.Principal
	doc           permission.Document
}

func (m *mockAggregator) MergedPermissions(_ context.Context, p role.Principal) (permission.Document, error) {
	m.lastPrincipal = p
	return m.doc, nil
}

var _ = ginkgo.Describe("UserService", func() {
	var (
		repo       *mockRepository
		aggregator *mockAggregator
		service    *Service
		ctx        context.Context
	)

	ginkgo.BeforeEach(func() {
		repo = &mockRepository{users: map[int64]*User{
			1: {ID: 1, Email: "user@example.com", FirstName: "First", LastName: "Last", IsActive: true},
		}}
		aggregator = &mockAggregator{doc: permission.Document{
			"profile": permission.List("view", "edit"),
		}}
		service = NewService(repo, aggregator)
		ctx = context.Background()
	})

	ginkgo.Describe("GetProfile", func() {
		ginkgo.It("attaches the merged permission document", func() {
			profile, err := service.GetProfile(ctx, 1)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(profile.User.Email).To(gomega.Equal("user@example.com"))
			gomega.Expect(profile.Permissions).To(gomega.HaveKey("profile"))
		})

		ginkgo.It("builds the principal from the stored flags", func() {
			repo.users[1].IsSuperuser = true
			_, err := service.GetProfile(ctx, 1)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(aggregator.lastPrincipal.ID).To(gomega.Equal(int64(1)))
			gomega.Expect(aggregator.lastPrincipal.IsSuperuser).To(gomega.BeTrue())
		})

		ginkgo.It("propagates a missing user", func() {
			_, err := service.GetProfile(ctx, 42)
			gomega.Expect(err).To(gomega.MatchError(ErrNotFound))
		})
	})

	ginkgo.Describe("UpdateProfile", func() {
		ginkgo.It("persists the new names and returns the fresh record", func() {
			updated, err := service.UpdateProfile(ctx, 1, UpdateProfileDTO{FirstName: "New", LastName: "Name"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(updated.FullName()).To(gomega.Equal("New Name"))
		})

		ginkgo.It("rejects an oversized name", func() {
			long := make([]byte, 200)
			for i := range long {
				long[i] = 'x'
			}
			_, err := service.UpdateProfile(ctx, 1, UpdateProfileDTO{FirstName: string(long)})
			gomega.Expect(err).To(gomega.BeAssignableToTypeOf(ValidationError{}))
		})
	})
})
