package executor

import (
    "sort"
    "strings"
)

type Language struct {
    Name      string   `json:"name"`
    Runtime   string   `json:"runtime"`
    Extension string   `json:"extension"`
    Aliases   []string `json:"aliases"`
}

var languages = map[string]Language{
    "javascript": {Name: "javascript", Runtime: "node", Extension: "js", Aliases: []string{"js", "jsx"}},
    "python":     {Name: "python", Runtime: "python3", Extension: "py", Aliases: []string{"py"}},
    "java":       {Name: "java", Runtime: "java", Extension: "java"},
    "cpp":        {Name: "cpp", Runtime: "cpp", Extension: "cpp", Aliases: []string{"c++"}},
    "csharp":     {Name: "csharp", Runtime: "csharp", Extension: "cs", Aliases: []string{"c#", "cs"}},
    "ruby":       {Name: "ruby", Runtime: "ruby", Extension: "rb", Aliases: []string{"rb"}},
    "go":         {Name: "go", Runtime: "go", Extension: "go", Aliases: []string{"golang"}},
    "rust":       {Name: "rust", Runtime: "rust", Extension: "rs", Aliases: []string{"rs"}},
    "php":        {Name: "php", Runtime: "php", Extension: "php"},
}

var aliases = func() map[string]string {
    m := make(map[string]string)
    for name, l := range languages {
        for _, a := range l.Aliases {
            m[a] = name
        }
    }
    return m
}()

// Lookup resolves a language name or alias, case-insensitively.
func Lookup(name string) (Language, bool) {
    key := strings.ToLower(strings.TrimSpace(name))
    if l, ok := languages[key]; ok {
        return l, true
    }
    if canonical, ok := aliases[key]; ok {
        return languages[canonical], true
    }
    return Language{}, false
}

// Canonical returns the table name for a language or alias.
func Canonical(name string) (string, bool) {
    l, ok := Lookup(name)
    return l.Name, ok
}

// Languages returns the table sorted by name.
func Languages() []Language {
    out := make([]Language, 0, len(languages))
    for _, l := range languages {
        out = append(out, l)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out
}

func names() string {
    ls := Languages()
    out := make([]string, len(ls))
    for i, l := range ls {
        out[i] = l.Name
    }
    return strings.Join(out, ", ")
}
