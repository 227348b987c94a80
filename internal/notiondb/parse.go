package notiondb

import (
	"encoding/json"
	"fmt"
)

// ParsePage parses a page retrieval response.
func ParsePage(raw json.RawMessage) (*Page, error) {
	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return &page, nil
}

// ParseBlockList parses a block children list response.
func ParseBlockList(raw json.RawMessage) (*List[Block], error) {
	var list List[Block]
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse block list: %w", err)
	}
	if list.Results == nil {
		list.Results = []Block{}
	}
	return &list, nil
}

// ParsePageList parses a database query response.
func ParsePageList(raw json.RawMessage) (*List[Page], error) {
	var list List[Page]
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("parse page list: %w", err)
	}
	return &list, nil
}

// CountBlocks counts blocks recursively.
func CountBlocks(blocks []Block) int {
	count := len(blocks)
	for _, block := range blocks {
		count += CountBlocks(block.Children)
	}
	return count
}
