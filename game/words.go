package game

import (
	_ "embed"
	"errors"
	"math/rand"
	"os"
	"strings"
)

//go:embed words.txt
var wordBank string

// WordSource yields prompt words for new rounds.
type WordSource interface {
	// Pick returns a word chosen uniformly at random from the words not in
	// excluding, falling back to the full list if everything is excluded.
	Pick(excluding map[string]bool) string

	// Size returns the number of words in the underlying list.
	Size() int
}

// WordList is a static, in-memory WordSource.
type WordList struct {
	words []string
}

// NewWordList builds a WordList from the given words, dropping blanks.
func NewWordList(words []string) (*WordList, error) {
	list := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			list = append(list, w)
		}
	}
	if len(list) == 0 {
		return nil, errors.New("word list is empty")
	}
	return &WordList{words: list}, nil
}

// DefaultWords returns the embedded word bank.
func DefaultWords() *WordList {
	list, err := NewWordList(strings.Split(wordBank, "\n"))
	if err != nil {
		// The embedded bank is part of the binary; an empty one is a build
		// defect, not a runtime condition.
		panic("embedded word bank is empty")
	}
	return list
}

// LoadWordList reads a word list from a file, one word per line.
func LoadWordList(path string) (*WordList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewWordList(strings.Split(string(data), "\n"))
}

func (l *WordList) Size() int {
	return len(l.words)
}

func (l *WordList) Pick(excluding map[string]bool) string {
	pool := make([]string, 0, len(l.words))
	for _, w := range l.words {
		if !excluding[w] {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		pool = l.words
	}
	return pool[rand.Intn(len(pool))]
}
