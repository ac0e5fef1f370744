package sparse

// Curated stop set: programming keywords, common English stop words, and
// the logging/build/config vocabulary that saturates code search queries
// without discriminating between files.
var stopWords = buildStopWordSet(
	// Programming keywords across the languages found in indexed corpora.
	[]string{
		"func", "function", "return", "returns", "var", "let", "const", "if",
		"else", "elif", "for", "while", "do", "switch", "case", "default",
		"break", "continue", "class", "struct", "interface", "enum", "type",
		"def", "lambda", "import", "export", "package", "module", "namespace",
		"public", "private", "protected", "static", "final", "abstract",
		"void", "int", "int32", "int64", "float", "float32", "float64",
		"double", "string", "str", "bool", "boolean", "byte", "char", "rune",
		"true", "false", "null", "nil", "none", "undefined", "new", "delete",
		"this", "self", "super", "extends", "implements", "override",
		"try", "catch", "finally", "throw", "throws", "raise", "except",
		"async", "await", "defer", "chan", "select", "goto", "range", "map",
		"get", "set", "use", "using",
	},
	// English stop words.
	[]string{
		"the", "a", "an", "and", "or", "but", "not", "no", "yes", "is", "are",
		"was", "were", "be", "been", "being", "am", "to", "of", "in", "on",
		"at", "by", "with", "about", "as", "it", "its", "from", "into",
		"that", "these", "those", "there", "here", "what", "which", "who",
		"whom", "whose", "how", "when", "where", "why", "does", "did",
		"can", "could", "should", "would", "will", "shall", "may", "might",
		"must", "have", "has", "had", "i", "me", "my", "we", "us", "our",
		"you", "your", "they", "them", "their", "he", "she", "him", "her",
		"all", "any", "some", "each", "other", "than", "then", "also",
		"just", "only", "very", "more", "most", "such", "per", "via",
	},
	// Logging, build and configuration vocabulary.
	[]string{
		"log", "logs", "logger", "logging", "debug", "info", "warn",
		"warning", "err", "error", "errors", "fatal", "panic", "trace",
		"print", "println", "printf", "fmt", "build", "builds", "make",
		"cmake", "gradle", "maven", "npm", "yarn", "pip", "cargo",
		"config", "configs", "configuration", "configure", "settings",
		"setting", "option", "options", "env", "environment", "flag",
		"flags", "param", "params", "parameter", "parameters", "arg",
		"args", "argument", "arguments", "todo", "fixme", "readme",
		"license", "changelog", "version", "versions",
	},
)

func buildStopWordSet(groups ...[]string) map[string]struct{} {
	out := make(map[string]struct{}, 256)
	for _, group := range groups {
		for _, w := range group {
			out[w] = struct{}{}
		}
	}
	return out
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}
