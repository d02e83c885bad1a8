package manifest

import (
	"encoding/xml"
	"io"
	"os"
)

// ExtractReferences parses one project file and returns a PackageReference
// for every PackageReference element found at any nesting depth. A missing
// Include or Version attribute yields an empty string, never an error.
func ExtractReferences(path string) ([]PackageReference, *Error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	defer f.Close()

	project := ProjectName(path)

	var refs []PackageReference
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "PackageReference" {
			continue
		}

		ref := PackageReference{Project: project}
		for _, attr := range se.Attr {
			switch attr.Name.Local {
			case "Include":
				ref.Name = attr.Value
			case "Version":
				ref.Version = attr.Value
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
