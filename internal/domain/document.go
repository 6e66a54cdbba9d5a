package domain

import "sync"

// Document is the client-held shared buffer. It has no revision: whatever
// value was applied last is the current one.
type Document struct {
	mu       sync.RWMutex
	buffer   string
	language Language
}

func NewDocument() *Document {
	return &Document{language: DefaultLanguage}
}

// Set overwrites the buffer and reports whether the value changed.
func (d *Document) Set(buffer string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buffer == buffer {
		return false
	}
	d.buffer = buffer
	return true
}

func (d *Document) Buffer() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buffer
}

func (d *Document) IsEmpty() bool {
	return d.Buffer() == ""
}

func (d *Document) Language() Language {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.language
}

func (d *Document) SetLanguage(lang Language) error {
	if !lang.IsValid() {
		return ErrUnsupportedLanguage
	}

	d.mu.Lock()
	d.language = lang
	d.mu.Unlock()
	return nil
}

// Reset clears the buffer but keeps the selected language.
func (d *Document) Reset() {
	d.mu.Lock()
	d.buffer = ""
	d.mu.Unlock()
}
