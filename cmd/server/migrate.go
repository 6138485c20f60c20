package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/gradtrack/internal/kv"
	"github.com/soaringjerry/gradtrack/internal/models"
	"github.com/soaringjerry/gradtrack/internal/repository"
	"github.com/soaringjerry/gradtrack/internal/services"
)

// Keys of the browser storage dump written by the first version of the app.
const (
	legacyUsers     = "sg_users"
	legacySurveys   = "sg_surveys"
	legacyResponses = "sg_responses"
	legacyTrainings = "sg_capacitaciones"
)

type legacyEmployment struct {
	Trabaja     string              `json:"trabaja"`
	Empresa     string              `json:"empresa"`
	Puesto      string              `json:"puesto"`
	Experiences []models.Experience `json:"experiences"`
}

type legacyUser struct {
	Name            string            `json:"name"`
	Surname         string            `json:"surname"`
	Cedula          string            `json:"cedula"`
	Telefono        string            `json:"telefono"`
	Carrera         string            `json:"carrera"`
	AnioGraduacion  json.RawMessage   `json:"anioGraduacion"`
	FechaNacimiento string            `json:"fechaNacimiento"`
	Genero          string            `json:"genero"`
	Linkedin        string            `json:"linkedin"`
	Direccion       string            `json:"direccion"`
	Email           string            `json:"email"`
	Password        string            `json:"password"`
	Role            string            `json:"role"`
	Status          string            `json:"status"`
	CreatedAt       string            `json:"createdAt"`
	Employment      *legacyEmployment `json:"employment"`
	Trainings       []string          `json:"trainings"`
}

type legacyResponse struct {
	models.Response
	Answer string `json:"answer"`
}

// MigrateIfNeeded imports a legacy storage dump into store. It does nothing when no
// dump is configured, the file does not exist, or the store already holds users.
func MigrateIfNeeded(ctx context.Context, dumpPath string, store kv.Store) error {
	if dumpPath == "" {
		return nil
	}
	raw, err := os.ReadFile(dumpPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read legacy dump: %w", err)
	}
	existing, err := kv.ReadList[models.User](ctx, store, repository.KeyUsers)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	if len(existing) > 0 {
		return nil // already migrated
	}

	dump, err := parseDump(raw)
	if err != nil {
		return fmt.Errorf("parse legacy dump: %w", err)
	}
	log.Printf("First run detected, importing legacy dump %s...", dumpPath)

	var users []legacyUser
	decodeLegacy(dump, legacyUsers, &users)
	converted := make([]models.User, 0, len(users))
	for _, lu := range users {
		u, err := convertUser(lu)
		if err != nil {
			return fmt.Errorf("convert user %s: %w", lu.Email, err)
		}
		converted = append(converted, u)
	}

	var surveys []models.Survey
	decodeLegacy(dump, legacySurveys, &surveys)

	var lresponses []legacyResponse
	decodeLegacy(dump, legacyResponses, &lresponses)
	responses := make([]models.Response, 0, len(lresponses))
	for _, lr := range lresponses {
		r := lr.Response
		if len(r.Answers) == 0 && lr.Answer != "" {
			r.Answers = strings.Split(lr.Answer, " | ")
		}
		responses = append(responses, r)
	}

	var trainings []models.Training
	decodeLegacy(dump, legacyTrainings, &trainings)

	if err := kv.WriteList(ctx, store, repository.KeyUsers, converted); err != nil {
		return err
	}
	if err := kv.WriteList(ctx, store, repository.KeySurveys, surveys); err != nil {
		return err
	}
	if err := kv.WriteList(ctx, store, repository.KeyResponses, responses); err != nil {
		return err
	}
	if err := kv.WriteList(ctx, store, repository.KeyTrainings, trainings); err != nil {
		return err
	}
	log.Printf("Legacy import completed: %d users, %d surveys, %d responses, %d trainings.",
		len(converted), len(surveys), len(responses), len(trainings))
	return nil
}

// parseDump accepts an object whose values are either the stored strings or the JSON
// they contain.
func parseDump(raw []byte) (map[string]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		out[k] = string(v)
	}
	return out, nil
}

// decodeLegacy leaves dst empty when the key is missing or unreadable, the way the
// old app treated corrupt storage.
func decodeLegacy(dump map[string]string, key string, dst any) {
	v := strings.TrimSpace(dump[key])
	if v == "" {
		return
	}
	if err := json.Unmarshal([]byte(v), dst); err != nil {
		log.Printf("migrate: %s is not valid JSON, skipped: %v", key, err)
	}
}

func convertUser(lu legacyUser) (models.User, error) {
	u := models.User{
		Email:       strings.TrimSpace(lu.Email),
		Name:        lu.Name,
		Surname:     lu.Surname,
		NationalID:  lu.Cedula,
		Phone:       lu.Telefono,
		Program:     lu.Carrera,
		BirthDate:   lu.FechaNacimiento,
		Gender:      lu.Genero,
		LinkedInURL: lu.Linkedin,
		Address:     lu.Direccion,
		Role:        models.Role(lu.Role),
		Status:      models.Status(strings.ToLower(lu.Status)),
		Trainings:   lu.Trainings,
	}
	if r, ok := models.ParseRole(lu.Role); ok {
		u.Role = r
	}
	u.GraduationYear = legacyYear(lu.AnioGraduacion)
	if t, err := time.Parse(time.RFC3339, lu.CreatedAt); err == nil {
		u.CreatedAt = t.UTC()
	}
	if u.Trainings == nil {
		u.Trainings = []string{}
	}
	if lu.Employment != nil {
		u.Employment = &models.Employment{
			Employed:    legacyEmployed(lu.Employment.Trabaja),
			Company:     lu.Employment.Empresa,
			Position:    lu.Employment.Puesto,
			Experiences: lu.Employment.Experiences,
		}
	}
	switch {
	case lu.Password == "":
	case strings.HasPrefix(lu.Password, "$2a$"), strings.HasPrefix(lu.Password, "$2b$"):
		u.PasswordHash = lu.Password
	default:
		hash, err := services.HashPassword(lu.Password)
		if err != nil {
			return u, err
		}
		u.PasswordHash = hash
	}
	return u, nil
}

func legacyEmployed(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "si", "sí", "yes":
		return models.EmployedYes
	case "no":
		return models.EmployedNo
	}
	return models.EmployedUnset
}

// legacyYear reads the graduation year stored either as a number or a string.
func legacyYear(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, _ = strconv.Atoi(strings.TrimSpace(s))
	}
	return n
}
