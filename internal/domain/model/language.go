package model

// Language identifies a judged programming language. Each language has its
// own queue partition and executor strategy.
type Language string

const (
	LangPython Language = "python"
	LangNodeJS Language = "nodejs"
	LangCPP    Language = "cpp"
	LangJava   Language = "java"
)

func (l Language) Valid() bool {
	switch l {
	case LangPython, LangNodeJS, LangCPP, LangJava:
		return true
	}
	return false
}
