package icon

// Icon identifies a symbol in the registry.
type Icon int

const (
	Lua Icon = iota + 1
	Go
	Fail
	Success
	Warn
	Info
	Link
	Server
	Globe
	Key
	Arrow
)

var icons = map[Icon]*iconDef{
	Lua: {
		emoji:   "🌙",
		nerd:    "",
		plain:   "Lua",
		kaomoji: "(=^･ω･^=)",
		squares: "🟦",
	},
	Go: {
		emoji:   "🐹",
		nerd:    "",
		plain:   "Go",
		kaomoji: "ʕ•ᴥ•ʔ",
		squares: "🟩",
	},
	Fail: {
		emoji:   "💀",
		nerd:    "",
		plain:   "x",
		kaomoji: "(╥﹏╥)",
		squares: "🟥",
	},
	Success: {
		emoji:   "🎉",
		nerd:    "",
		plain:   "ok",
		kaomoji: "(ᵔᴥᵔ)",
		squares: "🟩",
	},
	Warn: {
		emoji:   "⚠️",
		nerd:    "",
		plain:   "!",
		kaomoji: "(⊙_⊙;)",
		squares: "🟨",
	},
	Info: {
		emoji:   "ℹ️",
		nerd:    "",
		plain:   "i",
		kaomoji: "(・・ )?",
		squares: "🟦",
	},
	Link: {
		emoji:   "🔗",
		nerd:    "",
		plain:   "~",
		kaomoji: "(っ◔◡◔)っ",
		squares: "🟪",
	},
	Server: {
		emoji:   "📡",
		nerd:    "",
		plain:   "*",
		kaomoji: "(◕‿◕)",
		squares: "🟫",
	},
	Globe: {
		emoji:   "🌍",
		nerd:    "",
		plain:   "@",
		kaomoji: "(｡◕‿◕｡)",
		squares: "🟦",
	},
	Key: {
		emoji:   "🔑",
		nerd:    "",
		plain:   "#",
		kaomoji: "(¬‿¬)",
		squares: "🟨",
	},
	Arrow: {
		emoji:   "👉",
		nerd:    "",
		plain:   "->",
		kaomoji: "(☞ﾟヮﾟ)☞",
		squares: "▶",
	},
}
