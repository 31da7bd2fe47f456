// Command main runs the database seeder for DreamScope.
package main

import (
	"flag"
	"log"

	"dreamscope/internal/config"
	"dreamscope/internal/database"
	"dreamscope/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	dreamsPerUser := flag.Int("dreams", 3, "Number of dreams per user")
	commentsPerUser := flag.Int("comments", 2, "Number of comments per user")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d dreams/user, %d comments/user, clean=%v\n",
		*numUsers, *dreamsPerUser, *commentsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Run(seed.Options{
		NumUsers:        *numUsers,
		DreamsPerUser:   *dreamsPerUser,
		CommentsPerUser: *commentsPerUser,
		ShouldClean:     *shouldClean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
