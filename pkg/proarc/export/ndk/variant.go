package ndk

import (
	"github.com/proarc/proarc/pkg/proarc/core/domain/model"
	"github.com/proarc/proarc/pkg/proarc/fedora"
)

// fileSpec is one per-page file family of a package.
type fileSpec struct {
	// Sources are tried in order; the first present stream is used.
	Sources  []string
	Dir      string
	Prefix   string
	Group    string
	Use      string
	Required bool
	// Ext overrides the extension derived from the MIME type.
	Ext string
}

// Variant describes one NDK package flavour.
type Variant struct {
	Name  string
	Files []fileSpec
	// TechMD adds PREMIS technical metadata of the master copy.
	TechMD bool
	// OldPrint requires an old print root instead of forbidding it.
	OldPrint bool
}

var (
	masterCopy = fileSpec{Sources: []string{fedora.NdkArchival, fedora.AudioArchive}, Dir: "mastercopy", Prefix: "mc", Group: "MC_IMGGRP", Use: "Images", Required: true}
	userCopy   = fileSpec{Sources: []string{fedora.NdkUser, fedora.AudioUser}, Dir: "usercopy", Prefix: "uc", Group: "UC_IMGGRP", Use: "Images", Required: true}
	alto       = fileSpec{Sources: []string{fedora.Alto}, Dir: "alto", Prefix: "alto", Group: "ALTOGRP", Use: "Layout", Ext: "xml"}
	text       = fileSpec{Sources: []string{fedora.TextOCR}, Dir: "txt", Prefix: "txt", Group: "TXTGRP", Use: "Text", Ext: "txt"}
)

var variants = map[string]Variant{
	model.NdkVariantPSP: {Name: model.NdkVariantPSP, Files: []fileSpec{masterCopy, userCopy, alto, text}, TechMD: true},
	model.NdkVariantSIP: {Name: model.NdkVariantSIP, Files: []fileSpec{userCopy, alto, text}},
	model.NdkVariantSTT: {Name: model.NdkVariantSTT, Files: []fileSpec{masterCopy, userCopy, alto, text}, TechMD: true, OldPrint: true},
}

// VariantOf returns the variant named by batch params; empty means PSP.
func VariantOf(name string) (Variant, bool) {
	if name == "" {
		name = model.NdkVariantPSP
	}
	v, ok := variants[name]
	return v, ok
}
