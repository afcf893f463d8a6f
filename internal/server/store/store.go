// Package store 以 sqlite 保存帳號與戰績。
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("帳號已被使用")
	ErrInvalidCredentials = errors.New("帳號或密碼錯誤")
	ErrUserNotFound       = errors.New("找不到該帳號")
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	games_played  INTEGER NOT NULL DEFAULT 0,
	games_won     INTEGER NOT NULL DEFAULT 0
);
`

// Profile 是帳號的公開檔案
type Profile struct {
	Username    string `json:"username"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
}

type Store struct {
	db *sql.DB
}

// Open 開啟（必要時建立）資料庫檔案
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("開啟資料庫失敗: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化資料表失敗: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser 註冊新帳號，密碼以 bcrypt 雜湊後入庫
func (s *Store) CreateUser(username, password string) error {
	if len(username) < 3 || len(username) > 20 {
		return errors.New("帳號長度須為 3 至 20 字元")
	}
	if len(password) < 6 {
		return errors.New("密碼至少需要 6 個字元")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, string(hash))
	if err != nil {
		// UNIQUE 衝突視為帳號重複
		return ErrUsernameTaken
	}
	return nil
}

// Authenticate 驗證帳號密碼
func (s *Store) Authenticate(username, password string) error {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GetProfile 取得帳號檔案與戰績
func (s *Store) GetProfile(username string) (*Profile, error) {
	p := &Profile{}
	err := s.db.QueryRow(
		`SELECT username, games_played, games_won FROM users WHERE username = ?`, username,
	).Scan(&p.Username, &p.GamesPlayed, &p.GamesWon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecordResult 在終局時累計一場勝敗
func (s *Store) RecordResult(username string, won bool) error {
	wonDelta := 0
	if won {
		wonDelta = 1
	}
	_, err := s.db.Exec(
		`UPDATE users SET games_played = games_played + 1, games_won = games_won + ? WHERE username = ?`,
		wonDelta, username,
	)
	return err
}
