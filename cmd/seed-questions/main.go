package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/stemsi/qiyas-mock/internal/config"
	"github.com/stemsi/qiyas-mock/internal/database"
	"github.com/stemsi/qiyas-mock/internal/logger"
	"github.com/stemsi/qiyas-mock/internal/model"
	"github.com/stemsi/qiyas-mock/internal/repository"
	"github.com/stemsi/qiyas-mock/internal/service"
	"gopkg.in/yaml.v3"
)

// questionFile is the YAML layout accepted by -file.
type questionFile struct {
	Questions []struct {
		Text          string   `yaml:"text"`
		Options       []string `yaml:"options"`
		CorrectOption int      `yaml:"correct_option"`
		Category      string   `yaml:"category"`
		Explanation   string   `yaml:"explanation"`
	} `yaml:"questions"`
}

func main() {
	var (
		file   string
		perTag int
	)
	flag.StringVar(&file, "file", "", "YAML file of questions to import")
	flag.IntVar(&perTag, "per-tag", 0, "Generate this many placeholder questions for every category tag")
	flag.Parse()

	if file == "" && perTag <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionService := service.NewQuestionService(repository.NewQuestionRepository(pool))

	var reqs []model.AddQuestionRequest
	if file != "" {
		fromFile, err := readFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to read question file")
		}
		reqs = append(reqs, fromFile...)
	}
	if perTag > 0 {
		reqs = append(reqs, generate(perTag)...)
	}

	fmt.Printf("=== Seeding %d Questions ===\n", len(reqs))

	n, err := questionService.Import(ctx, reqs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to import questions")
	}

	stats, err := questionService.Stats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count questions")
	}
	tags := make([]string, 0, len(stats))
	for tag := range stats {
		tags = append(tags, string(tag))
	}
	sort.Strings(tags)

	fmt.Printf("\nInserted %d questions. Bank size per tag:\n", n)
	for _, tag := range tags {
		fmt.Printf("  %-24s %d\n", tag, stats[model.Category(tag)])
	}
}

func readFile(path string) ([]model.AddQuestionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var qf questionFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	reqs := make([]model.AddQuestionRequest, 0, len(qf.Questions))
	for i, q := range qf.Questions {
		cat := model.Category(q.Category)
		if cat == model.CategoryMixed || !cat.Valid() {
			return nil, fmt.Errorf("question %d: unknown category %q", i, q.Category)
		}
		reqs = append(reqs, model.AddQuestionRequest{
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Category:      q.Category,
			Explanation:   q.Explanation,
		})
	}
	return reqs, nil
}

// generate builds n placeholder questions for each domain and sub-tag.
func generate(n int) []model.AddQuestionRequest {
	var tags []model.Category
	for _, domain := range []model.Category{model.CategoryVerbal, model.CategoryQuantitative} {
		tags = append(tags, domain.SubTags()...)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	reqs := make([]model.AddQuestionRequest, 0, n*len(tags))
	for _, tag := range tags {
		for i := 1; i <= n; i++ {
			reqs = append(reqs, model.AddQuestionRequest{
				Text:          fmt.Sprintf("Sample %s question #%d", tag, i),
				Options:       []string{"A", "B", "C", "D"},
				CorrectOption: i % 4,
				Category:      string(tag),
				Explanation:   fmt.Sprintf("Option %c is correct.", 'A'+rune(i%4)),
			})
		}
	}
	return reqs
}
