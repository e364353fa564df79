package command

const (
	usageLogin    = "LOGIN <username> <password>"
	usageRegister = "REGISTER <username> <password> <type> [<qualification>/<enrollment year>]"
	usageMessage  = "MESSAGE <recipient> <message>"
	usageKill     = "KILL <username>/ALL"
)

var networkHelp = []string{
	"HELP:",
	usageRegister,
	usageLogin,
	usageMessage,
	"LOGOUT",
	"LIST_USERS",
	usageKill,
	"HELP",
	"",
}

var consoleHelp = []string{
	"HELP:",
	usageLogin,
	usageRegister,
	usageMessage,
	"LIST_USERS",
	usageKill,
	"LOGOUT",
	"HELP",
	"",
}
