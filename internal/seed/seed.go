// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"dreamscope/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers        int
	DreamsPerUser   int
	CommentsPerUser int
	ShouldClean     bool
}

// Curated starter vocabulary so seeded dreams cluster around recognizable
// themes instead of pure noise.
var seedTags = []models.Tag{
	{Name: "falling", Description: "A sense of losing control or support"},
	{Name: "flying", Description: "Freedom, escape or rising above a situation"},
	{Name: "chase", Description: "Avoidance of a threat or unresolved pressure"},
	{Name: "water", Description: "Emotions, the unconscious, change"},
	{Name: "teeth", Description: "Anxiety about appearance or communication"},
	{Name: "exam", Description: "Fear of being tested or judged"},
	{Name: "lost", Description: "Uncertainty about direction in waking life"},
	{Name: "house", Description: "The self and its hidden rooms"},
}

var dreamOpeners = []string{
	"I was back in my childhood home, but",
	"It started on a train that never stopped, and",
	"I found a door in my apartment I had never seen before, and",
	"Everyone around me spoke a language I almost understood, then",
	"The city was flooded up to the second floor, yet",
	"I was late for something important that I couldn't name, so",
}

// Seeder populates the database with demo users, dreams and comment threads.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// ClearAll removes all seeded domain data.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, stmt := range []string{
		"DELETE FROM comments",
		"DELETE FROM dream_tags",
		"DELETE FROM dreams",
		"DELETE FROM tags",
		"DELETE FROM users",
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("cleanup failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Run seeds the database according to the options.
func (s *Seeder) Run(opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	tags, err := s.seedTags()
	if err != nil {
		return err
	}

	users, err := s.seedUsers(opts.NumUsers)
	if err != nil {
		return err
	}

	dreams, err := s.seedDreams(users, tags, opts.DreamsPerUser)
	if err != nil {
		return err
	}

	if err := s.seedComments(users, dreams, opts.CommentsPerUser); err != nil {
		return err
	}

	log.Printf("Seeded %d users, %d dreams, %d tags", len(users), len(dreams), len(tags))
	return nil
}

func (s *Seeder) seedTags() ([]models.Tag, error) {
	tags := make([]models.Tag, len(seedTags))
	copy(tags, seedTags)
	if err := s.db.Create(&tags).Error; err != nil {
		return nil, fmt.Errorf("tag seeding failed: %w", err)
	}
	return tags, nil
}

func (s *Seeder) seedUsers(n int) ([]models.User, error) {
	if n <= 0 {
		n = 10
	}
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, models.User{
			Email:      fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			GivenName:  gofakeit.FirstName(),
			FamilyName: gofakeit.LastName(),
			Picture:    fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		})
	}
	if err := s.db.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("user seeding failed: %w", err)
	}
	return users, nil
}

func (s *Seeder) seedDreams(users []models.User, tags []models.Tag, perUser int) ([]models.Dream, error) {
	if perUser <= 0 {
		perUser = 3
	}

	var dreams []models.Dream
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			opener := dreamOpeners[s.rng.Intn(len(dreamOpeners))]
			content := fmt.Sprintf("%s %s", opener, gofakeit.Paragraph(1, 3, 8, " "))

			dream := models.Dream{
				UserID:    user.ID,
				Content:   content,
				Summary:   gofakeit.Sentence(8),
				Analysis:  gofakeit.Paragraph(1, 2, 10, " "),
				Tags:      s.pickTags(tags),
				CreatedAt: time.Now().Add(-time.Duration(s.rng.Intn(90*24)) * time.Hour),
			}
			if err := s.db.Create(&dream).Error; err != nil {
				return nil, fmt.Errorf("dream seeding failed: %w", err)
			}
			dreams = append(dreams, dream)
		}
	}
	return dreams, nil
}

func (s *Seeder) pickTags(tags []models.Tag) []models.Tag {
	count := 1 + s.rng.Intn(3)
	picked := make([]models.Tag, 0, count)
	seen := map[uint]bool{}
	for len(picked) < count {
		tag := tags[s.rng.Intn(len(tags))]
		if !seen[tag.ID] {
			seen[tag.ID] = true
			picked = append(picked, tag)
		}
	}
	return picked
}

func (s *Seeder) seedComments(users []models.User, dreams []models.Dream, perUser int) error {
	if perUser <= 0 {
		perUser = 2
	}

	var roots []models.Comment
	for _, user := range users {
		for i := 0; i < perUser; i++ {
			dream := dreams[s.rng.Intn(len(dreams))]
			comment := models.Comment{
				DreamID: dream.ID,
				UserID:  user.ID,
				Content: gofakeit.Sentence(10),
			}
			// A third of comments reply to an existing thread on the same dream.
			if len(roots) > 0 && s.rng.Intn(3) == 0 {
				if parent := s.rootOnDream(roots, dream.ID); parent != nil {
					comment.ParentID = &parent.ID
				}
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return fmt.Errorf("comment seeding failed: %w", err)
			}
			if comment.ParentID == nil {
				roots = append(roots, comment)
			}
		}
	}
	return nil
}

func (s *Seeder) rootOnDream(roots []models.Comment, dreamID uint) *models.Comment {
	for i := range roots {
		if roots[i].DreamID == dreamID {
			return &roots[i]
		}
	}
	return nil
}
