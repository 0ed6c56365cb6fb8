package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ecs/common"
)

// materialName returns the name meshes use to reference material i. Unnamed materials are
// qualified with the model name so two files cannot collide.
func (p *gltfParser) materialName(modelName string, i int) string {
	if i < 0 || i >= len(p.doc.Materials) {
		return ""
	}
	if n := p.doc.Materials[i].Name; n != "" {
		return n
	}
	return fmt.Sprintf("%s_material_%d", modelName, i)
}

// extractMaterials reads the base color factor and base color texture of every material.
func (p *gltfParser) extractMaterials(modelName string) ([]common.ImportedMaterial, error) {
	out := make([]common.ImportedMaterial, 0, len(p.doc.Materials))
	for i := range p.doc.Materials {
		m := common.ImportedMaterial{
			Name:      p.materialName(modelName, i),
			BaseColor: [4]float32{1, 1, 1, 1},
		}
		if pbr := p.doc.Materials[i].PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				m.BaseColor = *pbr.BaseColorFactor
			}
			if pbr.BaseColorTexture != nil {
				tex, err := p.texture(pbr.BaseColorTexture.Index, m.Name+"_diffuse")
				if err != nil {
					return nil, fmt.Errorf("material %s: %w", m.Name, err)
				}
				m.DiffuseTexture = tex
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// texture resolves a texture to embedded bytes or an external path. Nothing is decoded here.
func (p *gltfParser) texture(index int, fallbackName string) (*common.ImportedTexture, error) {
	if index < 0 || index >= len(p.doc.Textures) || p.doc.Textures[index].Source == nil {
		return nil, fmt.Errorf("%w: texture %d has no image", ErrInvalidGLTF, index)
	}
	src := *p.doc.Textures[index].Source
	if src < 0 || src >= len(p.doc.Images) {
		return nil, fmt.Errorf("%w: image %d out of range", ErrInvalidGLTF, src)
	}
	img := &p.doc.Images[src]
	tex := &common.ImportedTexture{Name: img.Name, MimeType: img.MimeType}
	if tex.Name == "" {
		tex.Name = fallbackName
	}

	switch {
	case img.BufferView != nil:
		data, err := p.bufferView(*img.BufferView)
		if err != nil {
			return nil, err
		}
		tex.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mediaType, err := p.resolveURI(img.URI)
		if err != nil {
			return nil, err
		}
		tex.Data = data
		tex.MimeType = common.Coalesce(tex.MimeType, mediaType)
	case img.URI != "":
		tex.Path = filepath.Join(p.baseDir, filepath.FromSlash(img.URI))
	default:
		return nil, fmt.Errorf("%w: image %d has no source", ErrInvalidGLTF, src)
	}
	return tex, nil
}
