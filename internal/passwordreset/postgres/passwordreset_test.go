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

	"github.com/frahmantamala/identity-service/internal/passwordreset"
	resetPostgres "github.com/frahmantamala/identity-service/internal/passwordreset/postgres"
)

func TestPasswordResetPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PasswordReset Postgres Suite")
}

// SQLite-compatible models for testing
type SQLiteUser struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password_hash"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	DateJoined   time.Time `gorm:"column:date_joined"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (SQLiteUser) TableName() string {
	return "users"
}

type SQLiteResetToken struct {
	ID        int64      `gorm:"primaryKey"`
	Token     string     `gorm:"column:token;uniqueIndex;not null"`
	UserID    int64      `gorm:"column:user_id;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	IsUsed    bool       `gorm:"column:is_used;default:false"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	IPAddress string     `gorm:"column:ip_address;default:''"`
}

func (SQLiteResetToken) TableName() string {
	return "password_reset_tokens"
}

var _ = Describe("PasswordReset PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo *resetPostgres.Repository
		ctx  context.Context
		now  time.Time
	)

	newToken := func(secret string, userID int64) *passwordreset.ResetToken {
		return &passwordreset.ResetToken{
			Token:     secret,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
			IPAddress: "198.51.100.4",
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteUser{}, &SQLiteResetToken{})
		Expect(err).NotTo(HaveOccurred())

		repo = resetPostgres.NewRepository(db)
		ctx = context.Background()
		now = time.Now().UTC().Truncate(time.Second)

		Expect(db.Create(&SQLiteUser{ID: 1, Email: "user@example.com", IsActive: true}).Error).To(Succeed())
	})

	Describe("Create and FindByToken", func() {
		It("round-trips the record with the owner's active flag", func() {
			Expect(repo.Create(ctx, newToken("rst-1", 1))).To(Succeed())

			got, err := repo.FindByToken(ctx, "rst-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(int64(1)))
			Expect(got.IsUsed).To(BeFalse())
			Expect(got.IPAddress).To(Equal("198.51.100.4"))
			Expect(got.OwnerActive).To(BeTrue())
		})

		It("rejects a duplicate secret", func() {
			Expect(repo.Create(ctx, newToken("rst-1", 1))).To(Succeed())
			err := repo.Create(ctx, newToken("rst-1", 1))
			Expect(err).To(MatchError(passwordreset.ErrDuplicateToken))
		})
	})

	Describe("MarkUsed", func() {
		It("consumes exactly once", func() {
			Expect(repo.Create(ctx, newToken("rst-1", 1))).To(Succeed())

			used, err := repo.MarkUsed(ctx, "rst-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(BeTrue())

			used, err = repo.MarkUsed(ctx, "rst-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(BeFalse())
		})
	})

	Describe("InvalidateAllForUser", func() {
		It("marks every unused token of the user as used", func() {
			Expect(repo.Create(ctx, newToken("rst-1", 1))).To(Succeed())
			Expect(repo.Create(ctx, newToken("rst-2", 1))).To(Succeed())

			n, err := repo.InvalidateAllForUser(ctx, 1, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			got, err := repo.FindByToken(ctx, "rst-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsUsed).To(BeTrue())
		})
	})

	Describe("DeleteExpired", func() {
		It("deletes only tokens past their expiry", func() {
			Expect(repo.Create(ctx, newToken("live", 1))).To(Succeed())

			stale := newToken("stale", 1)
			stale.ExpiresAt = now.Add(-time.Minute)
			Expect(repo.Create(ctx, stale)).To(Succeed())

			n, err := repo.DeleteExpired(ctx, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = repo.FindByToken(ctx, "stale")
			Expect(err).To(MatchError(passwordreset.ErrNotFound))
		})
	})
})
