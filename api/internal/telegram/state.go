package telegram

import "sync"

// chatPrefs is what /lang and /engine remember for one chat.
type chatPrefs struct {
	Language string
	Engine   string
}

type prefStore struct {
	m sync.Map // chatID -> chatPrefs
}

func (s *prefStore) get(chatID int64) chatPrefs {
	if v, ok := s.m.Load(chatID); ok {
		return v.(chatPrefs)
	}
	return chatPrefs{}
}

func (s *prefStore) setLanguage(chatID int64, lang string) {
	p := s.get(chatID)
	p.Language = lang
	s.m.Store(chatID, p)
}

func (s *prefStore) setEngine(chatID int64, engine string) {
	p := s.get(chatID)
	p.Engine = engine
	s.m.Store(chatID, p)
}
