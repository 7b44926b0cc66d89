package usecase

import (
	"fmt"
	"time"

	"github.com/20407002036/LughaBridge/domain/entities"
)

// DemoExchange is one scripted utterance the demo player can replay.
type DemoExchange struct {
	Sender           entities.MessageSender
	OriginalText     string
	TranslatedText   string
	OriginalLanguage entities.Language
	Confidence       float64
}

// DemoScript returns the fixed ordered list of scripted exchanges replayed by
// demo mode.
func DemoScript() []DemoExchange {
	return []DemoExchange{
		{
			Sender:           entities.SenderA,
			OriginalText:     "Ũhoro waku? Nĩ ndĩramũkĩra.",
			TranslatedText:   "How is your news? I am greeting you.",
			OriginalLanguage: entities.LanguageKikuyu,
			Confidence:       0.93,
		},
		{
			Sender:           entities.SenderB,
			OriginalText:     "Hello! I am learning Kikuyu. Can you help me?",
			TranslatedText:   "Ũhoro! Ndĩrĩkĩĩra Gĩkũyũ. Ũngĩteithia?",
			OriginalLanguage: entities.LanguageEnglish,
			Confidence:       0.90,
		},
		{
			Sender:           entities.SenderA,
			OriginalText:     "Ĩĩ, ngũgũteithia na gĩkeno kĩnene!",
			TranslatedText:   "Yes, I will help you with great joy!",
			OriginalLanguage: entities.LanguageKikuyu,
			Confidence:       0.95,
		},
		{
			Sender:           entities.SenderB,
			OriginalText:     "Thank you so much. Language connects us all.",
			TranslatedText:   "Nĩ wega mũno. Rũthiomi rũtũũnganĩtie othe.",
			OriginalLanguage: entities.LanguageEnglish,
			Confidence:       0.89,
		},
	}
}

// Message converts the exchange into a finalized chat message.
func (e DemoExchange) Message() entities.ChatMessage {
	return entities.ChatMessage{
		ID:               fmt.Sprintf("demo-%d", time.Now().UnixMilli()),
		Sender:           e.Sender,
		OriginalText:     e.OriginalText,
		TranslatedText:   e.TranslatedText,
		OriginalLanguage: e.OriginalLanguage,
		Timestamp:        time.Now(),
		Confidence:       e.Confidence,
	}
}

// DemoTranscript returns the static five-message conversation shown when a
// room cannot be joined.
func DemoTranscript() []entities.ChatMessage {
	now := time.Now()
	return []entities.ChatMessage{
		{
			ID:               "1",
			Sender:           entities.SenderA,
			OriginalText:     "Wĩ mwega? Nĩ ngũkena gũkuona.",
			TranslatedText:   "How are you? I am happy to see you.",
			OriginalLanguage: entities.LanguageKikuyu,
			Timestamp:        now.Add(-5 * time.Minute),
			Confidence:       0.94,
		},
		{
			ID:               "2",
			Sender:           entities.SenderB,
			OriginalText:     "I am doing well, thank you! How is your family?",
			TranslatedText:   "Ndĩ mwega, nĩ wega! Nyũmba yaku ĩrĩ atĩa?",
			OriginalLanguage: entities.LanguageEnglish,
			Timestamp:        now.Add(-4 * time.Minute),
			Confidence:       0.91,
		},
		{
			ID:               "3",
			Sender:           entities.SenderA,
			OriginalText:     "Andũ akwa othe nĩ ega. Tũrathiĩ mũgũnda.",
			TranslatedText:   "My people are all well. We are going to the farm.",
			OriginalLanguage: entities.LanguageKikuyu,
			Timestamp:        now.Add(-3 * time.Minute),
			Confidence:       0.88,
		},
		{
			ID:               "4",
			Sender:           entities.SenderB,
			OriginalText:     "That sounds wonderful. The harvest season is coming soon.",
			TranslatedText:   "Ũguo nĩ gwega mũno. Ihinda rĩa magetha rĩrĩkuhĩrĩria.",
			OriginalLanguage: entities.LanguageEnglish,
			Timestamp:        now.Add(-2 * time.Minute),
			Confidence:       0.87,
		},
		{
			ID:               "5",
			Sender:           entities.SenderA,
			OriginalText:     "Ĩĩ, tũrarehera na gĩkeno. Ngai atũrathime.",
			TranslatedText:   "Yes, we are preparing with joy. May God bless us.",
			OriginalLanguage: entities.LanguageKikuyu,
			Timestamp:        now.Add(-1 * time.Minute),
			Confidence:       0.92,
		},
	}
}
