package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/studyplan-api/internal/models"
)

const sampleSeed = `
courses:
  - id: 02GOLOV
    name: Architetture dei sistemi di elaborazione
    cfu: 12
    incompatibleWith: [02LSEOV]
  - id: 02LSEOV
    name: Computer architectures
    cfu: 12
    incompatibleWith: [02GOLOV]
  - id: 01SQJOV
    name: Data Science and Database Technology
    cfu: 8
  - id: 01SQMOV
    name: Data Science e Tecnologie per le Basi di Dati
    cfu: 8
    maxStudents: 3
    required: 01SQJOV
students:
  - email: " S1@studenti.polito.it "
    fullName: Studente Uno
    password: password
`

func TestParseSeed(t *testing.T) {
	seed, err := parseSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	require.Len(t, seed.Courses, 4)
	assert.Equal(t, "Computer architectures", seed.Courses[1].Name)
	require.NotNil(t, seed.Courses[3].MaxS)
	assert.Equal(t, 3, *seed.Courses[3].MaxS)
	assert.Equal(t, "01SQJOV", seed.Courses[3].RequiredID())
	assert.Zero(t, seed.Courses[3].ActualS)

	assert.Equal(t, []models.Incompatibility{{Course1: "02GOLOV", Course2: "02LSEOV"}}, seed.Incompatibilities)

	require.Len(t, seed.Students, 1)
	student := seed.Students[0]
	assert.Equal(t, "s1@studenti.polito.it", student.Email)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("password")))
}

func TestParseSeedRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"short id":           "courses:\n  - {id: ABC, name: x, cfu: 6}\n",
		"zero cfu":           "courses:\n  - {id: 01AAAAA, name: x, cfu: 0}\n",
		"duplicate course":   "courses:\n  - {id: 01AAAAA, name: x, cfu: 6}\n  - {id: 01AAAAA, name: y, cfu: 6}\n",
		"unknown required":   "courses:\n  - {id: 01AAAAA, name: x, cfu: 6, required: 09ZZZZZ}\n",
		"unknown partner":    "courses:\n  - {id: 01AAAAA, name: x, cfu: 6, incompatibleWith: [09ZZZZZ]}\n",
		"self incompatible":  "courses:\n  - {id: 01AAAAA, name: x, cfu: 6, incompatibleWith: [01AAAAA]}\n",
		"unknown field":      "courses:\n  - {id: 01AAAAA, name: x, cfu: 6, lecturer: y}\n",
		"student w/o secret": "students:\n  - {email: a@b.it}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseSeedEmptyDocument(t *testing.T) {
	seed, err := parseSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Courses)
}
