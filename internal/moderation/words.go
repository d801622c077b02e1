package moderation

// DefaultWords is used when no dictionary is configured.
var DefaultWords = []string{
	"arse",
	"arsehole",
	"asshole",
	"bastard",
	"bitch",
	"bollocks",
	"bullshit",
	"cunt",
	"dick",
	"dickhead",
	"fuck",
	"fucker",
	"fucking",
	"motherfucker",
	"piss",
	"prick",
	"shit",
	"slut",
	"twat",
	"wanker",
	"whore",
}
