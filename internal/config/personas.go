// internal/config/personas.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/PersonaTownMCP/internal/models"
)

// PersonasFile 是personas.yaml的顶层结构
type PersonasFile struct {
	Personas []models.AgentProfile `yaml:"personas"`
}

// LoadPersonas 从YAML文件加载全部角色人设
func LoadPersonas(path string) ([]models.AgentProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取角色配置文件失败: %w", err)
	}

	var file PersonasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("解析角色配置文件失败: %w", err)
	}

	if len(file.Personas) == 0 {
		return nil, fmt.Errorf("角色配置文件%s中没有定义任何角色", path)
	}

	seen := make(map[string]bool)
	for i, p := range file.Personas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("第%d个角色缺少id或name", i+1)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("角色ID重复: %s", p.ID)
		}
		seen[p.ID] = true
	}

	return file.Personas, nil
}
