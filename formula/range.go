// Copyright ©2024 The Bunpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// splitCellRef splits a cell identifier like "B12" into its column
// letters and row number. It returns an error if id is not shaped like
// a cell reference.
func splitCellRef(id string) (col string, row int, err error) {
	if !cellRefPattern.MatchString(id) {
		return "", 0, errf(ArgumentError, "invalid range endpoint: "+id)
	}
	i := 0
	for i < len(id) && isLetter(id[i]) {
		i++
	}
	col = strings.ToUpper(id[:i])
	row, convErr := strconv.Atoi(id[i:])
	if convErr != nil {
		return "", 0, errf(ArgumentError, "invalid range endpoint: "+id)
	}
	return col, row, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// colToIndex converts a column letter sequence ("A".."Z", "AA", ...) to
// a zero-based index, matching conventional spreadsheet column numbering.
func colToIndex(col string) int {
	idx := 0
	for i := 0; i < len(col); i++ {
		idx = idx*26 + int(col[i]-'A'+1)
	}
	return idx - 1
}

// indexToCol is the inverse of colToIndex.
func indexToCol(idx int) string {
	idx++
	var b []byte
	for idx > 0 {
		idx--
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx /= 26
	}
	return string(b)
}

// expandRange expands a range literal "from:to" into individual cell
// identifiers in row-major order, regardless of the endpoints'
// directionality (§4.2/§4.5: "B3:A1 expands identically to A1:B3").
func expandRange(from, to string) ([]string, error) {
	colFrom, rowFrom, err := splitCellRef(from)
	if err != nil {
		return nil, err
	}
	colTo, rowTo, err := splitCellRef(to)
	if err != nil {
		return nil, err
	}

	cFrom, cTo := colToIndex(colFrom), colToIndex(colTo)
	if cFrom > cTo {
		cFrom, cTo = cTo, cFrom
	}
	if rowFrom > rowTo {
		rowFrom, rowTo = rowTo, rowFrom
	}

	var ids []string
	for row := rowFrom; row <= rowTo; row++ {
		for c := cFrom; c <= cTo; c++ {
			ids = append(ids, fmt.Sprintf("%s%d", indexToCol(c), row))
		}
	}
	return ids, nil
}
