package kramerius

import (
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/mets"
)

var k4Models = map[string]string{
	model.ModelNdkPeriodical:           "model:periodical",
	model.ModelNdkPeriodicalVolume:     "model:periodicalvolume",
	model.ModelNdkPeriodicalIssue:      "model:periodicalitem",
	model.ModelNdkPeriodicalSupplement: "model:supplement",
	model.ModelNdkArticle:              "model:article",
	model.ModelNdkChapter:              "model:internalpart",
	model.ModelNdkPicture:              "model:picture",
	model.ModelNdkMonographTitle:       "model:monograph",
	model.ModelNdkMonographVolume:      "model:monograph",
	model.ModelNdkMonographSupplement:  "model:supplement",
	model.ModelNdkCartographic:         "model:map",
	model.ModelNdkSheetMusic:           "model:sheetmusic",
	model.ModelNdkMusicDocument:        "model:soundrecording",
	model.ModelNdkSong:                 "model:soundunit",
	model.ModelNdkTrack:                "model:track",
	model.ModelNdkPage:                 "model:page",
	model.ModelNdkAudioPage:            "model:page",
	model.ModelOldPrintMonographTitle:  "model:monograph",
	model.ModelOldPrintVolume:          "model:monograph",
	model.ModelOldPrintSupplement:      "model:supplement",
	model.ModelOldPrintChapter:         "model:internalpart",
	model.ModelOldPrintPage:            "model:page",
}

// k4Model maps a ProArc model to its Kramerius 4 counterpart; unknown
// models are kept.
func k4Model(m string) string {
	if k, ok := k4Models[m]; ok {
		return k
	}
	return m
}

// relationFor is the Kramerius predicate linking a parent to a child of
// type t.
func relationFor(parent mets.ElementType, child mets.ElementType) string {
	switch child {
	case mets.TypePage, mets.TypeAudioPage:
		return "hasPage"
	case mets.TypeVolume:
		if parent == mets.TypeTitle {
			return "hasVolume"
		}
		return "hasUnit"
	case mets.TypeIssue:
		return "hasItem"
	case mets.TypeMonographUnit:
		return "hasUnit"
	case mets.TypeSoundRecording, mets.TypeSoundPart:
		return "hasTrack"
	}
	return "hasIntCompPart"
}
