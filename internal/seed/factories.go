// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"dreamcore/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	// seed gofakeit for richer content
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGame constructs and persists a game thread owned by the given user.
func (f *Factory) CreateGame(owner *models.User, overrides ...func(*models.Game)) (*models.Game, error) {
	title := gameTitles[f.rng.Intn(len(gameTitles))]
	game := &models.Game{
		Title:     fmt.Sprintf("%s %s", title, gofakeit.AdjectiveDescriptive()),
		UserID:    owner.ID,
		CreatedAt: f.pastTimestamp(),
	}
	if f.rng.Intn(2) == 0 {
		game.GameURL = gofakeit.URL()
	}

	for _, override := range overrides {
		override(game)
	}

	if err := f.db.Create(game).Error; err != nil {
		return nil, err
	}
	return game, nil
}

// CreatePost constructs and persists a post in the given game. The created
// timestamp lands after the game's own so listings stay plausible.
func (f *Factory) CreatePost(game *models.Game, author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		GameID:    game.ID,
		UserID:    author.ID,
		Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
		CreatedAt: f.timestampAfter(game.CreatedAt),
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateLike persists a like for the (post, user) pair. Duplicate pairs are
// silently skipped so random seeding never trips the unique index.
func (f *Factory) CreateLike(post *models.Post, user *models.User) error {
	var existing int64
	if err := f.db.Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", post.ID, user.ID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return f.db.Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error
}

// pastTimestamp returns a time spread over the configured history window.
func (f *Factory) pastTimestamp() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour -
			time.Duration(hoursBack)*time.Hour -
			time.Duration(minsBack)*time.Minute)
}

// timestampAfter returns a time between t and now.
func (f *Factory) timestampAfter(t time.Time) time.Time {
	window := time.Since(t)
	if window <= 0 {
		return time.Now()
	}
	return t.Add(time.Duration(f.rng.Int63n(int64(window))))
}

var gameTitles = []string{
	"Yume Nikki", "Yume 2kki", ".flow", "OFF", "Hylics", "Space Funeral",
	"Ib", "The Witch's House", "Mad Father", "Ao Oni", "Corpse Party",
	"OneShot", "Lisa the Painful", "Middens", "Anodyne", "Barkley's Quest",
	"Dream Graffiti", "Static Motel", "Lucid Corridor", "Null Terrace",
}
