package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/repository"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load courses and students from a YAML file",
	Long: `Upsert the course catalog, its incompatibilities and the student accounts
described in a YAML seed file. Everything is written in one transaction.

Student passwords are given in clear text and stored as bcrypt hashes.
Enrollment counters are never touched by seeding.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()

		seed, err := parseSeed(f)
		if err != nil {
			return err
		}

		db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := repository.NewSeedRepository(db).Load(ctx, seed); err != nil {
			return err
		}

		printSuccess(cmd, fmt.Sprintf("seeded %s", seedFile))
		printLabelValue(cmd, "courses", len(seed.Courses))
		printLabelValue(cmd, "incompatibilities", len(seed.Incompatibilities))
		printLabelValue(cmd, "students", len(seed.Students))
		if len(seed.Students) == 0 {
			printWarning(cmd, "no students in seed file, nobody can log in")
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "catalog.yaml", "seed file to load")
}

type seedDocument struct {
	Courses []struct {
		ID           string   `yaml:"id"`
		Name         string   `yaml:"name"`
		Cfu          int      `yaml:"cfu"`
		MaxStudents  *int     `yaml:"maxStudents"`
		Required     string   `yaml:"required"`
		Incompatible []string `yaml:"incompatibleWith"`
	} `yaml:"courses"`
	Students []struct {
		ID       string `yaml:"id"`
		Email    string `yaml:"email"`
		FullName string `yaml:"fullName"`
		Password string `yaml:"password"`
	} `yaml:"students"`
}

// parseSeed decodes and checks a seed document. Incompatibilities may be
// listed on either side; each unordered pair is kept once.
func parseSeed(r io.Reader) (repository.CatalogSeed, error) {
	var doc seedDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return repository.CatalogSeed{}, fmt.Errorf("decode seed file: %w", err)
	}

	var seed repository.CatalogSeed
	known := make(map[string]struct{}, len(doc.Courses))
	for _, c := range doc.Courses {
		if len(c.ID) != models.CourseIDLength {
			return seed, fmt.Errorf("course %q: id must be %d characters", c.ID, models.CourseIDLength)
		}
		if c.Cfu <= 0 {
			return seed, fmt.Errorf("course %s: cfu must be positive", c.ID)
		}
		if c.MaxStudents != nil && *c.MaxStudents < 0 {
			return seed, fmt.Errorf("course %s: maxStudents must not be negative", c.ID)
		}
		if _, dup := known[c.ID]; dup {
			return seed, fmt.Errorf("course %s declared twice", c.ID)
		}
		known[c.ID] = struct{}{}
	}

	pairs := make(map[models.Incompatibility]struct{})
	for _, c := range doc.Courses {
		course := models.Course{ID: c.ID, Name: strings.TrimSpace(c.Name), Cfu: c.Cfu, MaxS: c.MaxStudents}
		if c.Required != "" {
			if _, ok := known[c.Required]; !ok {
				return seed, fmt.Errorf("course %s requires unknown course %s", c.ID, c.Required)
			}
			required := c.Required
			course.Required = &required
		}
		seed.Courses = append(seed.Courses, course)

		for _, other := range c.Incompatible {
			if _, ok := known[other]; !ok {
				return seed, fmt.Errorf("course %s is incompatible with unknown course %s", c.ID, other)
			}
			if other == c.ID {
				return seed, fmt.Errorf("course %s cannot be incompatible with itself", c.ID)
			}
			pair := models.Incompatibility{Course1: c.ID, Course2: other}
			if other < c.ID {
				pair = models.Incompatibility{Course1: other, Course2: c.ID}
			}
			if _, seen := pairs[pair]; seen {
				continue
			}
			pairs[pair] = struct{}{}
			seed.Incompatibilities = append(seed.Incompatibilities, pair)
		}
	}

	for _, s := range doc.Students {
		if s.Email == "" || s.Password == "" {
			return seed, fmt.Errorf("student %q: email and password are required", s.Email)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return seed, fmt.Errorf("hash password of %s: %w", s.Email, err)
		}
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		seed.Students = append(seed.Students, models.Student{
			ID:           id,
			Email:        strings.ToLower(strings.TrimSpace(s.Email)),
			FullName:     s.FullName,
			PasswordHash: string(hash),
		})
	}
	return seed, nil
}
