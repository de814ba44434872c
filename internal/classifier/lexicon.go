// Package classifier provides deterministic rule-based classification of
// inbound messages.
//
// Classification is pure keyword matching over named lexicon tables; no LLM
// is involved in control decisions.
package classifier

// GreetingLexicon matches salutations across the languages common on
// multinational crews.
var GreetingLexicon = []string{
	"hi", "hello", "hey", "hii", "hola", "namaste", "namaskar",
	"good morning", "good afternoon", "good evening", "good day",
	"greetings", "salaam", "bonjour",
}

// CommandLexicon matches bot commands. Commands are exact matches on the
// trimmed message, not substrings, so "help me fix the purifier" is not a
// command.
var CommandLexicon = []string{
	"/help", "help", "/start", "profile", "status", "menu", "/stop",
}

// LocationLexicon matches requests to discover nearby users. "koi hai" is the
// network's signature who-is-there call.
var LocationLexicon = []string{
	"who is here", "koi hai", "nearby", "near me", "around me", "close by",
	"where", "anyone here", "anyone in",
}

// CommercialLexicon matches purchase and pricing inquiries.
var CommercialLexicon = []string{
	"buy", "price", "pricing", "order", "cost", "purchase", "quote",
	"quotation", "sell", "supplier", "payment", "subscription",
}

// EmergencyLexicon matches distress and safety language. Emergency terms must
// never be shadowed by weaker matches: safety over commerce.
var EmergencyLexicon = []string{
	"emergency", "urgent", "mayday", "distress", "medical", "accident",
	"sos", "fire onboard", "man overboard", "sinking", "injury", "injured",
}

// EquipmentLexicon names shipboard machinery and the conventions mariners ask
// definitional questions about. It gates the clarification sub-dialog.
var EquipmentLexicon = []string{
	"turbocharger", "purifier", "compressor", "boiler", "generator",
	"alternator", "pump", "valve", "engine", "crankshaft", "piston",
	"injector", "governor", "windlass", "winch", "radar", "gyro",
	"gyroscope", "compass", "incinerator", "evaporator", "condenser",
	"economizer", "scrubber", "separator", "stabilizer", "thruster",
	"propeller", "rudder", "anchor", "crane", "davit",
	"marpol", "solas", "colreg", "ism", "isps",
}

// ProblemLexicon marks troubleshooting language. An equipment question with a
// problem indicator needs no clarification; the user wants diagnostics.
var ProblemLexicon = []string{
	"not working", "broken", "failed", "failure", "error", "fault",
	"faulty", "fix", "repair", "troubleshoot", "leaking", "leak",
	"overheating", "vibration", "vibrating", "alarm", "tripped", "trips",
	"not starting", "won't start", "wont start", "malfunction", "problem",
	"issue", "abnormal", "noise", "smoke",
}

// DefinitionalLexicon marks definitional phrasing that flags a question as
// ambiguous between theory and troubleshooting.
var DefinitionalLexicon = []string{
	"what is", "what are", "purpose of", "how does", "function of",
	"used for", "meaning of", "define", "explain",
}

// DomainLexicon is general maritime vocabulary. A message matching only this
// table is casual shop talk.
var DomainLexicon = []string{
	"ship", "vessel", "sea", "ocean", "port", "harbour", "harbor",
	"cargo", "deck", "sailor", "seafarer", "marine", "maritime", "crew",
	"voyage", "sailing", "captain", "chief", "officer", "cadet",
	"dry dock", "drydock", "bunker", "ballast", "mooring", "charterer",
	"engine room", "bridge", "galley", "watchkeeping",
}
