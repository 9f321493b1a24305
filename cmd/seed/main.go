// Package main seeds a data directory with forum activity for local testing.
//
// Writes go through the same services the API uses, so tag counters, answer
// counts and vote tallies come out consistent and the search index is filled.
// Run it while the server is stopped; the search index takes a file lock.
//
// Usage:
//
//	DATA_PATH=~/Overflow/data go run ./cmd/seed
//	DATA_PATH=~/Overflow/data go run ./cmd/seed --questions 200 --users 20
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devoverflow/overflow-server/internal/cache"
	"github.com/devoverflow/overflow-server/internal/domain"
	"github.com/devoverflow/overflow-server/internal/id"
	"github.com/devoverflow/overflow-server/internal/search"
	"github.com/devoverflow/overflow-server/internal/service"
	"github.com/devoverflow/overflow-server/internal/store/sqlite"
	"github.com/devoverflow/overflow-server/internal/validation"
)

var (
	questionCount = flag.Int("questions", 50, "Number of questions to create")
	userCount     = flag.Int("users", 8, "Number of distinct authors and voters")
)

var tagPool = []string{"go", "sql", "sqlite", "redis", "http", "concurrency", "testing", "generics", "channels", "docker"}

var topics = []string{
	"How do buffered channels block?",
	"Why does my SQLite write return SQLITE_BUSY?",
	"When should I reach for generics?",
	"How do I cancel a long running query?",
	"Is a nil map safe to read from?",
	"How do I test code that calls time.Now?",
	"What is the cost of a goroutine?",
	"How should errors be wrapped across packages?",
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Overflow/data")
	}

	dbPath := filepath.Join(dataPath, "overflow.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	db, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer db.Close()

	// The server caches views in its own backend; the seeded rows show up
	// there once its entries expire or the server restarts.
	backend, err := cache.OpenBadger(cache.BadgerConfig{InMemory: true})
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer backend.Close()

	index, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dataPath, "search")})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	views := cache.NewViews(backend, time.Minute, nil)
	runner := service.NewRunner(db, cache.NewInvalidator(cache.NewRegister(), backend, nil, nil), nil, nil)
	validator := validation.New()
	searchSvc := service.NewSearchService(index, db, nil)
	questions := service.NewQuestionService(runner, views, validator, searchSvc, nil)
	answers := service.NewAnswerService(runner, views, validator, searchSvc, nil)
	votes := service.NewVoteService(runner, searchSvc, nil)

	users := make([]string, *userCount)
	for i := range users {
		users[i] = id.MustGenerate(id.PrefixUser)
	}

	ctx := context.Background()
	var created, answered, voted int

	for n := range *questionCount {
		author := users[rand.IntN(len(users))]
		input := domain.QuestionInput{
			Title:   fmt.Sprintf("%s (#%d)", topics[n%len(topics)], n+1),
			Content: "I have been reading the docs and still cannot tell what happens here. A minimal example follows.",
			Tags:    pickTags(1 + rand.IntN(3)),
		}

		questionID, err := questions.Create(ctx, author, input)
		if err != nil {
			log.Printf("Failed to create question %d: %v", n+1, err)
			continue
		}
		created++

		for range rand.IntN(4) {
			responder := users[rand.IntN(len(users))]
			if _, err := answers.Answer(ctx, responder, questionID, domain.AnswerInput{Content: answerBody()}); err != nil {
				log.Printf("Failed to answer %s: %v", questionID, err)
				continue
			}
			answered++
		}

		for _, voter := range users {
			if voter == author || rand.IntN(3) > 0 {
				continue
			}
			cast := votes.Upvote
			if rand.IntN(4) == 0 {
				cast = votes.Downvote
			}
			if _, err := cast(ctx, domain.TargetQuestion, questionID, voter); err != nil {
				log.Printf("Failed to vote on %s: %v", questionID, err)
				continue
			}
			voted++
		}
	}

	fmt.Printf("\nSeeded %d questions, %d answers, %d votes from %d users\n", created, answered, voted, len(users))
}

func pickTags(n int) []string {
	perm := rand.Perm(len(tagPool))
	tags := make([]string, n)
	for i := range tags {
		tags[i] = tagPool[perm[i]]
	}
	return tags
}

func answerBody() string {
	return strings.Repeat("The behavior follows from how the runtime schedules the blocked goroutine. ", 2)
}
