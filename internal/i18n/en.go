package i18n

// EnMessages English message catalog
var EnMessages = map[string]string{
	// Views
	"view.feed":       "Feed",
	"view.planning":   "Planning",
	"view.review":     "Review",
	"view.brainstorm": "Brainstorm",

	// Status
	"status.ready":         "Ready",
	"status.thinking":      "Thinking...",
	"status.organizing":    "Organizing your fragments...",
	"status.reviewing":     "Writing your weekly review...",
	"status.brainstorming": "Brainstorming...",
	"status.recording":     "Listening...",
	"status.interrupted":   "Cancelled",

	// Chat
	"chat.fallback":    "Sorry, I can't respond right now because of a network hiccup. Please try again later.",
	"chat.cleared":     "Conversation cleared",
	"chat.interrupted": "(reply cancelled)",
	"chat.you":         "You",
	"chat.lumina":      "Lumina",

	// Fragments
	"fragment.added":     "Captured %s",
	"fragment.removed":   "Removed %s",
	"fragment.not_found": "No fragment with id %s",
	"fragment.toggled":   "%s is now a %s",
	"fragment.status":    "%s marked %s",
	"fragment.empty":     "Nothing captured yet. Type a thought to add it.",
	"fragment.count":     "%d fragments",

	// AI results
	"planning.themes":        "Themes",
	"planning.actions":       "Action Items",
	"planning.opportunities": "Opportunities",
	"planning.summary":       "Summary",
	"brainstorm.title":       "Directions for \"%s\"",
	"review.title":           "Weekly Review",

	// Errors
	"error.gateway":    "AI request failed: %s",
	"error.validation": "%s",
	"error.storage":    "Storage unavailable, changes are kept in memory only: %s",
	"error.config":     "Configuration error: %s",

	// REPL
	"repl.welcome":         "Lumina ready (provider: %s, fragments: %d). Type :help for commands.",
	"repl.bye":             "Bye.",
	"repl.unknown_command": "Unknown command: %s",
	"repl.usage":           "Usage: %s",
	"repl.help": `Commands:
  <text> | :add <text>   capture a fragment
  :ls                    list fragments
  :rm <id>               delete a fragment
  :todo <id>             toggle fragment/todo
  :done <id>             mark a todo completed
  :undo <id>             reopen a completed todo
  :organize              organize fragments into a plan
  :review                write a weekly review
  :brainstorm <idea>     brainstorm directions for an idea
  :chat <message>        talk to the assistant
  :clear                 clear the conversation
  :record                simulate a voice capture
  :cancel <kind>         cancel organize|review|brainstorm|chat
  :view <name>           switch view feed|planning|review|brainstorm
  :quit                  exit`,

	// Recording
	"recording.done": "Transcribed: %s",

	// Server
	"server.listening": "Lumina API listening on %s",

	// TUI
	"tui.mode.capture":     "capture",
	"tui.mode.chat":        "chat",
	"tui.placeholder":      "Type a thought and press enter...",
	"tui.chat_placeholder": "Ask Lumina anything...",
	"tui.keys":             "tab view · ctrl+t mode · ctrl+o organize · ctrl+r review · ctrl+b brainstorm · ctrl+v record · esc cancel",
	"tui.no_planning":      "No plan yet. Press ctrl+o to organize your fragments.",
	"tui.no_review":        "No review yet. Press ctrl+r to write one.",
	"tui.no_storm":         "Type an idea and press ctrl+b to brainstorm.",
	"sidebar.provider":     "Provider",
	"sidebar.fragments":    "Fragments",
	"sidebar.todos":        "Open todos",
	"sidebar.chat":         "Conversation",
}
