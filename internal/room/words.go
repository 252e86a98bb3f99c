package room

// codeWords is the vocabulary room codes are drawn from. Codes are
// human-facing, so the words stay short, food-themed and unambiguous
// when read aloud.
var codeWords = []string{
	"PASTA", "RAMEN", "TACO", "CURRY", "PAELLA",
	"GUMBO", "BISQUE", "RISOTTO", "GNOCCHI", "PHO",
	"SUSHI", "BAGEL", "CREPE", "WAFFLE", "SCONE",
	"BRIOCHE", "FOCACCIA", "CIABATTA", "PRETZEL", "CHURRO",
	"MISO", "PESTO", "TAHINI", "HARISSA", "KIMCHI",
	"SAFFRON", "NUTMEG", "PAPRIKA", "THYME", "BASIL",
	"MANGO", "PLUM", "FIG", "YUZU", "GUAVA",
	"COCOA", "TOFFEE", "NOUGAT", "PRALINE", "SORBET",
}
