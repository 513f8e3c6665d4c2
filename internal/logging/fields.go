package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// EntryFields 提供缓存条目的标识字段，供存储/读取日志复用。
func EntryFields(id, username, extension string) logrus.Fields {
	return logrus.Fields{
		"entry_id":  id,
		"username":  username,
		"extension": extension,
	}
}

// RequestFields 描述一次 HTTP 请求，供访问日志与错误日志复用。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
