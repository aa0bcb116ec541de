// cache.go
package file

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// PostsCache 清洗结果的进程级缓存
// 以 路径+修改时间 的指纹为键：文件没变就不重读，
// 文件被覆盖(或由邮件投递更新)后指纹变化，下次Load自动重新清洗
type PostsCache struct {
	sheetName string

	mu          sync.RWMutex
	fingerprint string
	df          dataframe.DataFrame
	valid       bool
}

func NewPostsCache(sheetName string) *PostsCache {
	return &PostsCache{sheetName: sheetName}
}

// Fingerprint 源文件身份标识：路径|修改时间|大小 的MD5
func Fingerprint(filePath string) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", fmt.Errorf("读取数据文件信息失败: %w", err)
	}

	raw := filePath + "|" + info.ModTime().UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(info.Size(), 10)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}

// Load 返回清洗后的数据表，同一文件的重复加载命中缓存
// 缓存表构建后只读，调用方不得修改
func (c *PostsCache) Load(filePath string) (dataframe.DataFrame, error) {
	fp, err := Fingerprint(filePath)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	c.mu.RLock()
	if c.valid && c.fingerprint == fp {
		df := c.df
		c.mu.RUnlock()
		return df, nil
	}
	c.mu.RUnlock()

	df, err := LoadPosts(filePath, c.sheetName)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	c.mu.Lock()
	c.fingerprint = fp
	c.df = df
	c.valid = true
	c.mu.Unlock()

	return df, nil
}

// Invalidate 作废缓存，下次Load强制重读
func (c *PostsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.fingerprint = ""
}
