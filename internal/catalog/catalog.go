// Package catalog defines the static chat-model and programming-language
// catalogs. Both are closed sets: every identifier that enters the system
// is checked against them before any side effect.
package catalog

// ChatModelID identifies a selectable chat model.
type ChatModelID string

// LanguageID identifies a supported programming language.
type LanguageID string

const (
	ModelGPT4oMini   ChatModelID = "gpt-4o-mini"
	ModelTinySwallow ChatModelID = "TinySwallow-1.5B"
	ModelLlama32     ChatModelID = "Llama-3.2-1B-Instruct-q4f32_1-MLC"

	LangPython     LanguageID = "python"
	LangJavaScript LanguageID = "javascript"
)

const (
	DefaultChatModelID = ModelGPT4oMini
	DefaultLanguageID  = LangPython
)

// Keys under which the last selection is persisted in a kvstore.Store.
const (
	KeyChatModelID = "chat-model-id"
	KeyLanguageID  = "programming-language-type"
)

// ChatModel is a static catalog entry describing a selectable model.
// IsOnline decides routing: online models are reviewed through the backend,
// offline models run through the local inference adapter.
type ChatModel struct {
	ID          ChatModelID
	Name        string
	Description string
	IsOnline    bool
}

// Language is a static catalog entry describing a supported language. It is
// used both for editor highlighting and for prompt construction.
type Language struct {
	ID          LanguageID
	Label       string
	Description string
}

// ChatModels returns the full chat-model catalog in display order.
func ChatModels() []ChatModel {
	return []ChatModel{
		{ID: ModelGPT4oMini, Name: "GPT-4o mini", Description: "Online", IsOnline: true},
		{ID: ModelTinySwallow, Name: "TinySwallow", Description: "Offline", IsOnline: false},
		{ID: ModelLlama32, Name: "Llama 3.2", Description: "Offline", IsOnline: false},
	}
}

// Languages returns the full programming-language catalog in display order.
func Languages() []Language {
	return []Language{
		{ID: LangPython, Label: "Python", Description: "Readable, versatile, popular in AI and data."},
		{ID: LangJavaScript, Label: "JavaScript", Description: "Core web language for interactive apps."},
	}
}

// Valid reports whether the identifier belongs to the chat-model catalog.
func (id ChatModelID) Valid() bool {
	switch id {
	case ModelGPT4oMini, ModelTinySwallow, ModelLlama32:
		return true
	}
	return false
}

// IsOnline reports whether the model is routed through the hosted backend.
// Unknown identifiers are treated as offline; callers must Valid() first.
func (id ChatModelID) IsOnline() bool {
	return id == ModelGPT4oMini
}

// Valid reports whether the identifier belongs to the language catalog.
func (id LanguageID) Valid() bool {
	switch id {
	case LangPython, LangJavaScript:
		return true
	}
	return false
}

// ChatModelByID looks up a catalog entry. The second return value is false
// for identifiers outside the catalog.
func ChatModelByID(id ChatModelID) (ChatModel, bool) {
	for _, m := range ChatModels() {
		if m.ID == id {
			return m, true
		}
	}
	return ChatModel{}, false
}

// LanguageByID looks up a catalog entry. The second return value is false
// for identifiers outside the catalog.
func LanguageByID(id LanguageID) (Language, bool) {
	for _, l := range Languages() {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}
