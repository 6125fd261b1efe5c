package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/identity-service/internal/token"
	tokenPostgres "github.com/frahmantamala/identity-service/internal/token/postgres"
)

func TestTokenPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Token Postgres Suite")
}

// SQLite-compatible models for testing
type SQLiteUser struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	FirstName    string    `gorm:"column:first_name"`
	LastName     string    `gorm:"column:last_name"`
	PasswordHash string    `gorm:"column:password_hash"`
	IsActive     bool      `gorm:"column:is_active;default:true"`
	IsSuperuser  bool      `gorm:"column:is_superuser;default:false"`
	DateJoined   time.Time `gorm:"column:date_joined"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (SQLiteUser) TableName() string {
	return "users"
}

type SQLiteRefreshToken struct {
	ID        int64      `gorm:"primaryKey"`
	Token     string     `gorm:"column:token;uniqueIndex;not null"`
	UserID    int64      `gorm:"column:user_id;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at"`
	IsRevoked bool       `gorm:"column:is_revoked;default:false"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	UserAgent string     `gorm:"column:user_agent"`
	IPAddress string     `gorm:"column:ip_address"`
}

func (SQLiteRefreshToken) TableName() string {
	return "refresh_tokens"
}

var _ = Describe("Token PostgreSQL Repository", func() {
	var (
		db   *gorm.DB
		repo *tokenPostgres.Repository
		ctx  context.Context
		now  time.Time
	)

	createUser := func(id int64, active bool) {
		u := SQLiteUser{ID: id, Email: fmt.Sprintf("user%d@example.com", id), IsActive: active}
		Expect(db.Create(&u).Error).To(Succeed())
		// gorm skips zero-value fields that carry a default tag, so an
		// inactive user would be stored as active; set the flag explicitly.
		Expect(db.Exec("UPDATE users SET is_active = ? WHERE id = ?", active, id).Error).To(Succeed())
	}

	newToken := func(secret string, userID int64) *token.RefreshToken {
		return &token.RefreshToken{
			Token:     secret,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteUser{}, &SQLiteRefreshToken{})
		Expect(err).NotTo(HaveOccurred())

		repo = tokenPostgres.NewRepository(db)
		ctx = context.Background()
		now = time.Now().UTC().Truncate(time.Second)

		createUser(1, true)
		createUser(2, false)
	})

	Describe("Create and FindByToken", func() {
		It("stores the record and reports the owner's active flag", func() {
			Expect(repo.Create(ctx, newToken("tok-1", 1))).To(Succeed())

			got, err := repo.FindByToken(ctx, "tok-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.UserID).To(Equal(int64(1)))
			Expect(got.OwnerActive).To(BeTrue())
			Expect(got.IsRevoked).To(BeFalse())
		})

		It("reports an inactive owner", func() {
			Expect(repo.Create(ctx, newToken("tok-2", 2))).To(Succeed())

			got, err := repo.FindByToken(ctx, "tok-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.OwnerActive).To(BeFalse())
		})

		It("rejects a duplicate secret", func() {
			Expect(repo.Create(ctx, newToken("tok-1", 1))).To(Succeed())
			err := repo.Create(ctx, newToken("tok-1", 1))
			Expect(err).To(MatchError(token.ErrDuplicateToken))
		})

		It("returns ErrNotFound for an unknown secret", func() {
			_, err := repo.FindByToken(ctx, "ghost")
			Expect(err).To(MatchError(token.ErrNotFound))
		})
	})

	Describe("MarkRevoked", func() {
		It("revokes once and reports false on repeat", func() {
			Expect(repo.Create(ctx, newToken("tok-1", 1))).To(Succeed())

			revoked, err := repo.MarkRevoked(ctx, "tok-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(revoked).To(BeTrue())

			revoked, err = repo.MarkRevoked(ctx, "tok-1", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(revoked).To(BeFalse())

			got, err := repo.FindByToken(ctx, "tok-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsRevoked).To(BeTrue())
			Expect(got.RevokedAt).NotTo(BeNil())
		})
	})

	Describe("RevokeAllForUser", func() {
		It("revokes only the user's live unexpired tokens", func() {
			Expect(repo.Create(ctx, newToken("live-1", 1))).To(Succeed())
			Expect(repo.Create(ctx, newToken("live-2", 1))).To(Succeed())

			stale := newToken("stale", 1)
			stale.ExpiresAt = now.Add(-time.Hour)
			Expect(repo.Create(ctx, stale)).To(Succeed())

			Expect(repo.Create(ctx, newToken("other", 2))).To(Succeed())

			n, err := repo.RevokeAllForUser(ctx, 1, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(2)))

			got, err := repo.FindByToken(ctx, "other")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsRevoked).To(BeFalse())
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
			Expect(err).To(MatchError(token.ErrNotFound))
			_, err = repo.FindByToken(ctx, "live")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
