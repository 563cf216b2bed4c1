package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/snapit/price-scraper/internal/config"
	"github.com/snapit/price-scraper/internal/models"
	"github.com/snapit/price-scraper/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken reports a signup against an already-registered email.
var ErrEmailTaken = errors.New("email is already registered")

// ErrBadCredentials reports a login with an unknown email or wrong password.
var ErrBadCredentials = errors.New("invalid email or password")

// UserStore persists user accounts with bcrypt-hashed passwords.
type UserStore struct {
	store  *store.Store
	loc    models.StorageLocation
	once   sync.Once
	logger *slog.Logger
}

func NewUserStore(s *store.Store, cfg config.AuthConfig, logger *slog.Logger) *UserStore {
	return &UserStore{
		store: s,
		loc: models.StorageLocation{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		},
		logger: logger.With("component", "users"),
	}
}

func (u *UserStore) collection(ctx context.Context) (*mongo.Collection, error) {
	col, err := u.store.Collection(ctx, u.loc)
	if err != nil {
		return nil, err
	}
	u.once.Do(func() {
		_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			u.logger.Warn("failed to create email index", "error", err)
		}
	})
	return col, nil
}

// User is the serialized account shape returned by the auth endpoints. The
// password hash never leaves the store.
type User struct {
	Name      string `json:"name" bson:"name"`
	Email     string `json:"email" bson:"email"`
	CreatedAt string `json:"created_at" bson:"created_at"`
}

// Create registers a new account. The password is stored only as a bcrypt
// hash.
func (u *UserStore) Create(ctx context.Context, name, email, password string) (User, error) {
	col, err := u.collection(ctx)
	if err != nil {
		return User{}, err
	}

	count, err := col.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return User{}, fmt.Errorf("failed to check existing account: %w", err)
	}
	if count > 0 {
		return User{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := User{
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	_, err = col.InsertOne(ctx, bson.M{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": string(hash),
		"created_at":    user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("failed to create account: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email/password pair.
func (u *UserStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	col, err := u.collection(ctx)
	if err != nil {
		return User{}, err
	}

	var doc struct {
		User         `bson:",inline"`
		PasswordHash string `bson:"password_hash"`
	}
	if err := col.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrBadCredentials
		}
		return User{}, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrBadCredentials
	}
	return doc.User, nil
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "name, email, and password are required")
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			h.respondError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("signup failed", "email", req.Email, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.respondError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.logger.Error("login failed", "email", req.Email, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}
