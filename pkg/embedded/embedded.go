package embedded

import (
	_ "embed"
)

// Embed all prompt data files
//
//go:embed data/core_data/system_prompt.txt
var SystemPromptTxt []byte

//go:embed data/knowledge/genres.yaml
var GenresYAML []byte

//go:embed data/knowledge/moods.yaml
var MoodsYAML []byte

//go:embed data/knowledge/drum_map.yaml
var DrumMapYAML []byte
