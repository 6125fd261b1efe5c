package postgres_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/identity-service/internal/permission"
	"github.com/frahmantamala/identity-service/internal/role"
	rolePostgres "github.com/frahmantamala/identity-service/internal/role/postgres"
)

func TestRolePostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Role Postgres Suite")
}

// SQLiteRole is a SQLite-compatible model for testing
type SQLiteRole struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Permissions string    `gorm:"column:permissions"`
	IsActive    bool      `gorm:"column:is_active;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (SQLiteRole) TableName() string {
	return "roles"
}

type SQLiteUserRole struct {
	UserID    int64     `gorm:"column:user_id;primaryKey"`
	RoleID    int64     `gorm:"column:role_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (SQLiteUserRole) TableName() string {
	return "user_roles"
}

var _ = Describe("Role PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo *rolePostgres.Repository
		ctx  context.Context
	)

	newRole := func(name string, active bool) *role.Role {
		return &role.Role{
			Name:        name,
			Description: "test role",
			Permissions: permission.Document{
				"posts": permission.List("create", "read"),
			},
			IsActive: active,
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteRole{}, &SQLiteUserRole{})
		Expect(err).NotTo(HaveOccurred())

		repo = rolePostgres.NewRepository(db)
		ctx = context.Background()
	})

	Describe("Create and lookup", func() {
		It("round-trips the permission document", func() {
			r := newRole("editor", true)
			Expect(repo.Create(ctx, r)).To(Succeed())
			Expect(r.ID).To(BeNumerically(">", 0))

			got, err := repo.GetByName(ctx, "editor")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("editor"))
			Expect(got.Permissions.Keys()).To(ContainElement("posts"))
			Expect(got.Permissions["posts"].List()).To(ConsistOf("create", "read"))
		})

		It("returns ErrNotFound for an unknown role", func() {
			_, err := repo.GetByName(ctx, "ghost")
			Expect(err).To(MatchError(role.ErrNotFound))
		})

		It("hides inactive roles from the active lookup only", func() {
			Expect(repo.Create(ctx, newRole("dormant", false))).To(Succeed())

			_, err := repo.GetActiveByName(ctx, "dormant")
			Expect(err).To(MatchError(role.ErrNotFound))

			got, err := repo.GetByName(ctx, "dormant")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsActive).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("replaces the permission document", func() {
			r := newRole("editor", true)
			Expect(repo.Create(ctx, r)).To(Succeed())

			r.Permissions = permission.Document{
				"posts": permission.Actions(map[string]permission.Action{
					"create": permission.Allow(true),
					"delete": permission.Allow(false),
				}),
			}
			Expect(repo.Update(ctx, r)).To(Succeed())

			got, err := repo.GetByName(ctx, "editor")
			Expect(err).NotTo(HaveOccurred())
			actions := got.Permissions["posts"].Actions()
			Expect(actions["create"].Allowed()).To(BeTrue())
			Expect(actions["delete"].Allowed()).To(BeFalse())
		})

		It("fails for a role that does not exist", func() {
			ghost := newRole("ghost", true)
			ghost.ID = 999
			Expect(repo.Update(ctx, ghost)).To(MatchError(role.ErrNotFound))
		})
	})

	Describe("Membership", func() {
		var editor, viewer *role.Role

		BeforeEach(func() {
			editor = newRole("editor", true)
			viewer = newRole("viewer", true)
			Expect(repo.Create(ctx, editor)).To(Succeed())
			Expect(repo.Create(ctx, viewer)).To(Succeed())
		})

		It("assigns and reports membership", func() {
			Expect(repo.Assign(ctx, 1, editor.ID)).To(Succeed())

			assigned, err := repo.IsAssigned(ctx, 1, editor.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned).To(BeTrue())

			assigned, err = repo.IsAssigned(ctx, 1, viewer.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned).To(BeFalse())
		})

		It("lists only the user's active roles", func() {
			dormant := newRole("dormant", false)
			Expect(repo.Create(ctx, dormant)).To(Succeed())

			Expect(repo.Assign(ctx, 1, editor.ID)).To(Succeed())
			Expect(repo.Assign(ctx, 1, dormant.ID)).To(Succeed())
			Expect(repo.Assign(ctx, 2, viewer.ID)).To(Succeed())

			roles, err := repo.ActiveRolesForUser(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(1))
			Expect(roles[0].Name).To(Equal("editor"))
		})

		It("unassigns a role", func() {
			Expect(repo.Assign(ctx, 1, editor.ID)).To(Succeed())
			Expect(repo.Unassign(ctx, 1, editor.ID)).To(Succeed())

			assigned, err := repo.IsAssigned(ctx, 1, editor.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned).To(BeFalse())
		})
	})
})
